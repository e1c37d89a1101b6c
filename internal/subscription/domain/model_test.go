package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapProviderStatus(t *testing.T) {
	cases := []struct {
		provider string
		want     Status
	}{
		{provider: "active", want: StatusActive},
		{provider: "trialing", want: StatusActive},
		{provider: "canceled", want: StatusCancelled},
		{provider: "incomplete", want: StatusPending},
		{provider: "incomplete_expired", want: StatusFailed},
		{provider: "past_due", want: StatusPaused},
		{provider: "unpaid", want: StatusFailed},
		{provider: "something_new", want: Status("something_new")},
	}

	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			assert.Equal(t, tc.want, MapProviderStatus(tc.provider))
		})
	}
}
