package domain

import (
	"context"
	"errors"

	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
)

// Service reconciles charge, refund and dispute events into order state.
// Business failures are returned so the router can log them; none of them
// should surface to the provider as a retryable error.
type Service interface {
	HandleChargeSucceeded(ctx context.Context, event *webhookdomain.Event, charge webhookdomain.Charge) error
	HandleChargeFailed(ctx context.Context, event *webhookdomain.Event, charge webhookdomain.Charge) error
	HandleChargeRefunded(ctx context.Context, event *webhookdomain.Event, charge webhookdomain.Charge) error
	HandleDisputeCreated(ctx context.Context, event *webhookdomain.Event, dispute webhookdomain.Dispute) error
}

var (
	// ErrNotOurs marks charges whose metadata does not carry this platform's
	// source marker or required ids. They are logged and skipped.
	ErrNotOurs        = errors.New("not_ours")
	ErrRecordNotFound = errors.New("record_not_found")
	ErrDuplicateOrder = errors.New("duplicate_order")
)
