package domain

import (
	"context"
	"errors"

	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
)

// Service mirrors the provider's subscription lifecycle into local
// subscription orders. Lookup misses are logged and skipped because the
// checkout flow may not have written its row yet when the first event lands.
type Service interface {
	HandleCheckoutCompleted(ctx context.Context, event *webhookdomain.Event, session webhookdomain.CheckoutSession) error
	HandleSubscriptionCreated(ctx context.Context, event *webhookdomain.Event, sub webhookdomain.Subscription) error
	HandleSubscriptionUpdated(ctx context.Context, event *webhookdomain.Event, sub webhookdomain.Subscription) error
	HandleSubscriptionDeleted(ctx context.Context, event *webhookdomain.Event, sub webhookdomain.Subscription) error
	HandleInvoiceSucceeded(ctx context.Context, event *webhookdomain.Event, invoice webhookdomain.Invoice) error
	HandleInvoiceFailed(ctx context.Context, event *webhookdomain.Event, invoice webhookdomain.Invoice) error
}

var ErrRecordNotFound = errors.New("record_not_found")
