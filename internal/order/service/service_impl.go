package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/annpale/payments/internal/clock"
	"github.com/annpale/payments/internal/config"
	ledgerdomain "github.com/annpale/payments/internal/ledger/domain"
	notificationdomain "github.com/annpale/payments/internal/notification/domain"
	obsmetrics "github.com/annpale/payments/internal/observability/metrics"
	orderdomain "github.com/annpale/payments/internal/order/domain"
	"github.com/annpale/payments/internal/providers/stripe"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"github.com/annpale/payments/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	metadataSourceKey    = "source"
	metadataCreatorKey   = "creatorId"
	metadataUserKey      = "userId"
	metadataCustomerKey  = "customerId"
	refundSourceRejected = "creator_rejection"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	SplitHolder *config.SplitConfigHolder
	Repo        orderdomain.Repository
	LedgerSvc   ledgerdomain.Service
	Notifier    notificationdomain.Dispatcher
	Stripe      stripe.Client
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	source      string
	splitHolder *config.SplitConfigHolder
	repo        orderdomain.Repository
	ledgerSvc   ledgerdomain.Service
	notifier    notificationdomain.Dispatcher
	stripe      stripe.Client
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) orderdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		source:      strings.TrimSpace(p.Cfg.SourceMarker),
		splitHolder: p.SplitHolder,
		repo:        p.Repo,
		ledgerSvc:   p.LedgerSvc,
		notifier:    p.Notifier,
		stripe:      p.Stripe,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) HandleChargeSucceeded(ctx context.Context, event *webhookdomain.Event, charge webhookdomain.Charge) error {
	creatorID := strings.TrimSpace(charge.Metadata[metadataCreatorKey])
	customerID := strings.TrimSpace(charge.Metadata[metadataUserKey])
	if customerID == "" {
		customerID = strings.TrimSpace(charge.Metadata[metadataCustomerKey])
	}

	if charge.Metadata[metadataSourceKey] != s.source || creatorID == "" || customerID == "" {
		s.log.Info("charge is not an annpale video request, skipping",
			zap.String("event_id", event.ID),
			zap.String("charge_id", charge.ID),
			zap.String("source", charge.Metadata[metadataSourceKey]),
		)
		return orderdomain.ErrNotOurs
	}

	split := s.splitHolder.Current()
	earnings, fee := orderdomain.ComputeSplit(charge.Amount, split.PlatformFeePercent)

	now := s.clock.Now()
	order := orderdomain.Order{
		ID:                 s.genID.Generate(),
		PaymentReferenceID: paymentReference(charge),
		CreatorID:          creatorID,
		CustomerID:         customerID,
		Amount:             charge.Amount,
		CreatorEarnings:    earnings,
		PlatformFee:        fee,
		Currency:           strings.ToUpper(strings.TrimSpace(charge.Currency)),
		Status:             orderdomain.OrderStatusPending,
		Metadata:           requestDetails(charge.Metadata),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.log.Info("order already exists for payment reference, skipping",
				zap.String("payment_reference_id", order.PaymentReferenceID),
				zap.String("event_id", event.ID),
			)
			return nil
		}
		s.log.Error("order creation failed",
			zap.String("payment_reference_id", order.PaymentReferenceID),
			zap.Error(err),
		)
		s.sendAlert(ctx, notificationdomain.SystemAlert{
			Type:     "order_creation_failed",
			Severity: notificationdomain.SeverityCritical,
			Data: map[string]any{
				"payment_intent": order.PaymentReferenceID,
				"error":          err.Error(),
				"metadata":       charge.Metadata,
			},
		})
		return err
	}

	s.obsMetrics.RecordOrderCreated(ctx)

	notification := notificationdomain.CreatorNotification{
		CreatorID: creatorID,
		Type:      "new_order",
		Title:     "New video request",
		Body: fmt.Sprintf("You have a new video request for %s. You earn %s of the %s total.",
			formatAmount(order.Amount, order.Currency),
			formatAmount(order.CreatorEarnings, order.Currency),
			formatAmount(order.Amount, order.Currency),
		),
		Data: map[string]any{
			"order_id":         order.ID.String(),
			"customer_id":      customerID,
			"amount":           order.Amount,
			"creator_earnings": order.CreatorEarnings,
			"platform_fee":     order.PlatformFee,
			"occasion":         charge.Metadata["occasion"],
			"recipient_name":   charge.Metadata["recipientName"],
			"instructions":     charge.Metadata["instructions"],
		},
	}
	if err := s.notifier.SendCreatorNotification(ctx, notification); err != nil {
		s.log.Warn("creator notification failed",
			zap.String("order_id", order.ID.String()),
			zap.String("creator_id", creatorID),
			zap.Error(err),
		)
	}

	return nil
}

func (s *Service) HandleChargeFailed(ctx context.Context, event *webhookdomain.Event, charge webhookdomain.Charge) error {
	// Failed charges create nothing yet; the checkout flow retries on its own.
	s.log.Info("charge failed",
		zap.String("event_id", event.ID),
		zap.String("charge_id", charge.ID),
		zap.String("failure_code", charge.FailureCode),
		zap.String("failure_message", charge.FailureMessage),
	)
	return nil
}

func (s *Service) HandleChargeRefunded(ctx context.Context, event *webhookdomain.Event, charge webhookdomain.Charge) error {
	reference := paymentReference(charge)
	order, err := s.repo.FindByPaymentReference(ctx, s.db, reference)
	if err != nil {
		s.log.Error("order lookup failed for refund",
			zap.String("payment_reference_id", reference),
			zap.Error(err),
		)
		return err
	}
	if order == nil {
		s.log.Info("no order found for refunded charge, skipping",
			zap.String("payment_reference_id", reference),
			zap.String("event_id", event.ID),
		)
		return orderdomain.ErrRecordNotFound
	}

	// The provider lists refunds most recent first.
	var refund webhookdomain.Refund
	if len(charge.Refunds.Data) > 0 {
		refund = charge.Refunds.Data[0]
	}

	// Refund processing is best effort across independent side effects; a
	// failed sub-step never blocks the ones after it.
	for _, entry := range charge.Refunds.Data {
		if entry.ID == "" {
			continue
		}
		if err := s.ledgerSvc.UpdateRefundStatus(ctx, reference, entry); err != nil {
			s.log.Warn("refund ledger update failed",
				zap.String("refund_id", entry.ID),
				zap.Error(err),
			)
		}
	}

	now := s.clock.Now()
	metadata := order.Metadata
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}
	metadata["refund_id"] = refund.ID
	metadata["refund_amount"] = charge.AmountRefunded
	metadata["refund_reason"] = refund.Reason
	metadata["refunded_at"] = now.Format(time.RFC3339)

	if err := s.repo.UpdateStatus(ctx, s.db, order.ID, orderdomain.OrderStatusRefunded, metadata, now); err != nil {
		s.log.Error("order refund status update failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	if order.VideoRequestID != nil && *order.VideoRequestID != 0 {
		reason := "Order refunded"
		if refund.Reason != "" {
			reason = fmt.Sprintf("Order refunded: %s", refund.Reason)
		}
		if err := s.repo.CancelVideoRequest(ctx, s.db, *order.VideoRequestID, reason, now); err != nil {
			s.log.Warn("video request cancellation failed",
				zap.String("video_request_id", order.VideoRequestID.String()),
				zap.Error(err),
			)
		}
	}

	body := fmt.Sprintf("Your refund of %s has been processed.", formatAmount(charge.AmountRefunded, charge.Currency))
	if err := s.notifier.SendNotification(ctx, order.CustomerID, "Refund processed", body); err != nil {
		s.log.Warn("refund notification failed",
			zap.String("customer_id", order.CustomerID),
			zap.Error(err),
		)
	}

	if refund.Metadata[metadataSourceKey] == refundSourceRejected {
		rejection := notificationdomain.CreatorNotification{
			CreatorID: order.CreatorID,
			Type:      "rejection_completed",
			Title:     "Request rejection completed",
			Body:      fmt.Sprintf("The refund of %s for your rejected request has been completed.", formatAmount(charge.AmountRefunded, charge.Currency)),
			Data:      map[string]any{"order_id": order.ID.String()},
		}
		if err := s.notifier.SendCreatorNotification(ctx, rejection); err != nil {
			s.log.Warn("rejection completion notification failed",
				zap.String("creator_id", order.CreatorID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *Service) HandleDisputeCreated(ctx context.Context, event *webhookdomain.Event, dispute webhookdomain.Dispute) error {
	reference := strings.TrimSpace(dispute.PaymentIntent)
	if reference == "" {
		charge, err := s.stripe.GetCharge(ctx, dispute.Charge)
		if err != nil {
			s.log.Warn("charge lookup failed for dispute, falling back to charge id",
				zap.String("charge_id", dispute.Charge),
				zap.Error(err),
			)
			reference = dispute.Charge
		} else {
			reference = charge.PaymentIntentID
		}
	}

	order, err := s.repo.FindByPaymentReference(ctx, s.db, reference)
	if err != nil {
		s.log.Error("order lookup failed for dispute",
			zap.String("payment_reference_id", reference),
			zap.Error(err),
		)
		return err
	}
	if order == nil {
		s.log.Info("no order found for disputed charge, skipping",
			zap.String("payment_reference_id", reference),
			zap.String("dispute_id", dispute.ID),
		)
		return orderdomain.ErrRecordNotFound
	}

	now := s.clock.Now()
	metadata := order.Metadata
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}
	metadata["dispute_id"] = dispute.ID
	metadata["dispute_reason"] = dispute.Reason
	metadata["dispute_amount"] = dispute.Amount
	metadata["dispute_status"] = dispute.Status
	metadata["dispute_created_at"] = time.Unix(dispute.Created, 0).UTC().Format(time.RFC3339)
	if dispute.EvidenceDetails.DueBy > 0 {
		metadata["dispute_evidence_due_by"] = time.Unix(dispute.EvidenceDetails.DueBy, 0).UTC().Format(time.RFC3339)
	}

	if err := s.repo.UpdateStatus(ctx, s.db, order.ID, orderdomain.OrderStatusDisputed, metadata, now); err != nil {
		s.log.Error("order dispute status update failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return err
	}

	s.sendAlert(ctx, notificationdomain.SystemAlert{
		Type:     "charge_disputed",
		Severity: notificationdomain.SeverityHigh,
		Data: map[string]any{
			"order_id":   order.ID.String(),
			"dispute_id": dispute.ID,
			"reason":     dispute.Reason,
			"amount":     dispute.Amount,
		},
	})

	return nil
}

func (s *Service) sendAlert(ctx context.Context, alert notificationdomain.SystemAlert) {
	if err := s.notifier.SendSystemAlert(ctx, alert); err != nil {
		s.log.Warn("system alert dispatch failed",
			zap.String("alert_type", alert.Type),
			zap.Error(err),
		)
	}
}

func paymentReference(charge webhookdomain.Charge) string {
	if reference := strings.TrimSpace(charge.PaymentIntent); reference != "" {
		return reference
	}
	return strings.TrimSpace(charge.ID)
}

func requestDetails(metadata map[string]string) datatypes.JSONMap {
	details := datatypes.JSONMap{}
	for _, key := range []string{"occasion", "recipientName", "instructions"} {
		if value, ok := metadata[key]; ok && strings.TrimSpace(value) != "" {
			details[key] = value
		}
	}
	return details
}

func formatAmount(minorUnits int64, currency string) string {
	symbol := "$"
	if upper := strings.ToUpper(strings.TrimSpace(currency)); upper != "" && upper != "USD" {
		symbol = upper + " "
	}
	whole := minorUnits / 100
	cents := minorUnits % 100
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", symbol, whole, cents)
}
