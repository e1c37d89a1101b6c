package domain

import (
	"context"
	"net/http"
)

// Verifier authenticates a raw webhook body against the shared secret and
// produces a trusted Event. With no secret configured it parses without
// verification, which is only acceptable in development.
type Verifier interface {
	VerifyAndParse(payload []byte, headers http.Header) (*Event, error)
}

// Service routes one verified event to exactly one reconciler and always
// attempts an audit append afterwards.
type Service interface {
	Ingest(ctx context.Context, payload []byte, headers http.Header) error
}
