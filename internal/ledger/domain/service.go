package domain

import (
	"context"

	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
)

// Service applies transfer, application-fee and refund bookkeeping onto the
// transactions ledger. Every operation is a keyed read-merge-write; failures
// are logged by the caller and never abort event processing.
type Service interface {
	HandleTransferCreated(ctx context.Context, event *webhookdomain.Event, transfer webhookdomain.Transfer) error
	HandleTransferReversed(ctx context.Context, event *webhookdomain.Event, transfer webhookdomain.Transfer) error
	HandleFeeCreated(ctx context.Context, event *webhookdomain.Event, fee webhookdomain.ApplicationFee) error
	HandleFeeRefunded(ctx context.Context, event *webhookdomain.Event, fee webhookdomain.ApplicationFee) error

	// UpdateRefundStatus records refund-tracking state keyed by the provider
	// refund id under the transaction for paymentReferenceID.
	UpdateRefundStatus(ctx context.Context, paymentReferenceID string, refund webhookdomain.Refund) error
}
