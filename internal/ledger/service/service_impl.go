package service

import (
	"context"
	"strings"
	"time"

	"github.com/annpale/payments/internal/clock"
	ledgerdomain "github.com/annpale/payments/internal/ledger/domain"
	obsmetrics "github.com/annpale/payments/internal/observability/metrics"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       ledgerdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) HandleTransferCreated(ctx context.Context, event *webhookdomain.Event, transfer webhookdomain.Transfer) error {
	key := strings.TrimSpace(transfer.SourceTransaction)
	if key == "" {
		s.log.Info("transfer without source transaction, skipping",
			zap.String("transfer_id", transfer.ID),
			zap.String("event_id", event.ID),
		)
		return nil
	}

	merge := map[string]any{
		"transfer_id":          transfer.ID,
		"transfer_amount":      transfer.Amount,
		"transfer_destination": transfer.Destination,
		"transfer_reversed":    transfer.Reversed,
	}
	if err := s.repo.Merge(ctx, s.db, s.genID, key, -1, merge, s.clock.Now()); err != nil {
		s.log.Error("transfer ledger merge failed",
			zap.String("transfer_id", transfer.ID),
			zap.String("source_transaction", key),
			zap.Error(err),
		)
		return err
	}
	s.obsMetrics.RecordLedgerMerge(ctx, "transfer")
	return nil
}

func (s *Service) HandleTransferReversed(ctx context.Context, event *webhookdomain.Event, transfer webhookdomain.Transfer) error {
	key := strings.TrimSpace(transfer.SourceTransaction)
	if key == "" {
		s.log.Info("transfer reversal without source transaction, skipping",
			zap.String("transfer_id", transfer.ID),
			zap.String("event_id", event.ID),
		)
		return nil
	}

	merge := map[string]any{
		"transfer_id":          transfer.ID,
		"transfer_reversed":    true,
		"transfer_reversed_at": s.clock.Now().Format(time.RFC3339),
	}
	if err := s.repo.Merge(ctx, s.db, s.genID, key, -1, merge, s.clock.Now()); err != nil {
		s.log.Error("transfer reversal ledger merge failed",
			zap.String("transfer_id", transfer.ID),
			zap.String("source_transaction", key),
			zap.Error(err),
		)
		return err
	}
	s.obsMetrics.RecordLedgerMerge(ctx, "transfer_reversal")
	return nil
}

func (s *Service) HandleFeeCreated(ctx context.Context, event *webhookdomain.Event, fee webhookdomain.ApplicationFee) error {
	key := strings.TrimSpace(fee.Charge)
	if key == "" {
		s.log.Info("application fee without charge, skipping",
			zap.String("fee_id", fee.ID),
			zap.String("event_id", event.ID),
		)
		return nil
	}

	merge := map[string]any{
		"application_fee_id": fee.ID,
		"fee_created_at":     time.Unix(fee.Created, 0).UTC().Format(time.RFC3339),
	}
	if err := s.repo.Merge(ctx, s.db, s.genID, key, fee.Amount, merge, s.clock.Now()); err != nil {
		s.log.Error("application fee ledger merge failed",
			zap.String("fee_id", fee.ID),
			zap.String("charge", key),
			zap.Error(err),
		)
		return err
	}
	s.obsMetrics.RecordLedgerMerge(ctx, "application_fee")
	return nil
}

func (s *Service) HandleFeeRefunded(ctx context.Context, event *webhookdomain.Event, fee webhookdomain.ApplicationFee) error {
	key := strings.TrimSpace(fee.Charge)
	if key == "" {
		s.log.Info("application fee refund without charge, skipping",
			zap.String("fee_id", fee.ID),
			zap.String("event_id", event.ID),
		)
		return nil
	}

	merge := map[string]any{
		"fee_refunded":      true,
		"fee_refund_amount": fee.AmountRefunded,
		"fee_refunded_at":   s.clock.Now().Format(time.RFC3339),
	}
	if err := s.repo.Merge(ctx, s.db, s.genID, key, -1, merge, s.clock.Now()); err != nil {
		s.log.Error("application fee refund ledger merge failed",
			zap.String("fee_id", fee.ID),
			zap.String("charge", key),
			zap.Error(err),
		)
		return err
	}
	s.obsMetrics.RecordLedgerMerge(ctx, "application_fee_refund")
	return nil
}

func (s *Service) UpdateRefundStatus(ctx context.Context, paymentReferenceID string, refund webhookdomain.Refund) error {
	paymentReferenceID = strings.TrimSpace(paymentReferenceID)
	if paymentReferenceID == "" || strings.TrimSpace(refund.ID) == "" {
		return nil
	}

	entry := map[string]any{
		"status":     ledgerdomain.MapRefundStatus(refund.Status),
		"amount":     refund.Amount,
		"updated_at": s.clock.Now().Format(time.RFC3339),
	}
	if refund.FailureReason != "" {
		entry["failure_reason"] = refund.FailureReason
	}

	merge := map[string]any{
		"refund_" + refund.ID: entry,
	}
	if err := s.repo.Merge(ctx, s.db, s.genID, paymentReferenceID, -1, merge, s.clock.Now()); err != nil {
		s.log.Error("refund ledger merge failed",
			zap.String("refund_id", refund.ID),
			zap.String("payment_reference_id", paymentReferenceID),
			zap.Error(err),
		)
		return err
	}
	s.obsMetrics.RecordLedgerMerge(ctx, "refund")
	return nil
}
