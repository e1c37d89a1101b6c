package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	auditdomain "github.com/annpale/payments/internal/audit/domain"
	"github.com/annpale/payments/internal/clock"
	connectdomain "github.com/annpale/payments/internal/connect/domain"
	ledgerdomain "github.com/annpale/payments/internal/ledger/domain"
	obsmetrics "github.com/annpale/payments/internal/observability/metrics"
	orderdomain "github.com/annpale/payments/internal/order/domain"
	subscriptiondomain "github.com/annpale/payments/internal/subscription/domain"
	"github.com/annpale/payments/internal/webhook/domain"
	"github.com/annpale/payments/internal/webhook/eventcache"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	outcomeProcessed = "processed"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
	outcomeDuplicate = "duplicate"
	outcomeIgnored   = "ignored"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Verifier   domain.Verifier
	Cache      *eventcache.Cache `optional:"true"`
	Audit      auditdomain.Service
	Orders     orderdomain.Service
	Subs       subscriptiondomain.Service
	Connect    connectdomain.Service
	Ledger     ledgerdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	verifier   domain.Verifier
	cache      *eventcache.Cache
	audit      auditdomain.Service
	orders     orderdomain.Service
	subs       subscriptiondomain.Service
	connect    connectdomain.Service
	ledger     ledgerdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("webhook.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		verifier:   p.Verifier,
		cache:      p.Cache,
		audit:      p.Audit,
		orders:     p.Orders,
		subs:       p.Subs,
		connect:    p.Connect,
		ledger:     p.Ledger,
		obsMetrics: p.ObsMetrics,
	}
}

// Ingest verifies the raw body, records a receipt, and routes the event to
// its reconciler. Only verification failures propagate to the transport; a
// reconciler failure is logged and the event acknowledged so the provider
// does not retry work that will fail the same way again.
func (s *Service) Ingest(ctx context.Context, payload []byte, headers http.Header) error {
	event, err := s.verifier.VerifyAndParse(payload, headers)
	if err != nil {
		s.log.Warn("webhook verification failed", zap.Error(err))
		return err
	}

	log := s.log.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.RawType),
	)

	if s.cache.Seen(ctx, event.ID) {
		log.Info("event already processed, acknowledging redelivery")
		s.obsMetrics.RecordWebhookEvent(ctx, event.RawType, outcomeDuplicate)
		return domain.ErrEventAlreadyProcessed
	}

	now := s.clock.Now()
	receipt := auditdomain.WebhookEvent{
		ID:              s.genID.Generate(),
		ProviderEventID: event.ID,
		EventType:       event.RawType,
		APIVersion:      event.APIVersion,
		LiveMode:        event.LiveMode,
		ReceivedAt:      now,
	}
	if inserted, err := s.audit.Record(ctx, &receipt); err == nil && !inserted {
		log.Info("event already recorded, acknowledging redelivery")
		s.obsMetrics.RecordWebhookEvent(ctx, event.RawType, outcomeDuplicate)
		s.cache.MarkProcessed(ctx, event.ID)
		return domain.ErrEventAlreadyProcessed
	}

	outcome := s.route(ctx, log, event)
	s.obsMetrics.RecordWebhookEvent(ctx, event.RawType, outcome)

	if outcome != outcomeFailed {
		if err := s.audit.MarkProcessed(ctx, event.ID, s.clock.Now()); err == nil {
			s.cache.MarkProcessed(ctx, event.ID)
		}
	}

	return nil
}

func (s *Service) route(ctx context.Context, log *zap.Logger, event *domain.Event) string {
	switch event.Type {
	case domain.EventChargeSucceeded:
		var charge domain.Charge
		if out := decode(log, event, &charge); out != "" {
			return out
		}
		return s.outcome(log, s.orders.HandleChargeSucceeded(ctx, event, charge))

	case domain.EventChargeFailed:
		var charge domain.Charge
		if out := decode(log, event, &charge); out != "" {
			return out
		}
		return s.outcome(log, s.orders.HandleChargeFailed(ctx, event, charge))

	case domain.EventChargeRefunded:
		var charge domain.Charge
		if out := decode(log, event, &charge); out != "" {
			return out
		}
		return s.outcome(log, s.orders.HandleChargeRefunded(ctx, event, charge))

	case domain.EventDisputeCreated:
		var dispute domain.Dispute
		if out := decode(log, event, &dispute); out != "" {
			return out
		}
		return s.outcome(log, s.orders.HandleDisputeCreated(ctx, event, dispute))

	case domain.EventCheckoutCompleted:
		var session domain.CheckoutSession
		if out := decode(log, event, &session); out != "" {
			return out
		}
		return s.outcome(log, s.subs.HandleCheckoutCompleted(ctx, event, session))

	case domain.EventSubscriptionCreated:
		var sub domain.Subscription
		if out := decode(log, event, &sub); out != "" {
			return out
		}
		return s.outcome(log, s.subs.HandleSubscriptionCreated(ctx, event, sub))

	case domain.EventSubscriptionUpdated:
		var sub domain.Subscription
		if out := decode(log, event, &sub); out != "" {
			return out
		}
		return s.outcome(log, s.subs.HandleSubscriptionUpdated(ctx, event, sub))

	case domain.EventSubscriptionDeleted:
		var sub domain.Subscription
		if out := decode(log, event, &sub); out != "" {
			return out
		}
		return s.outcome(log, s.subs.HandleSubscriptionDeleted(ctx, event, sub))

	case domain.EventInvoiceSucceeded:
		var invoice domain.Invoice
		if out := decode(log, event, &invoice); out != "" {
			return out
		}
		return s.outcome(log, s.subs.HandleInvoiceSucceeded(ctx, event, invoice))

	case domain.EventInvoiceFailed:
		var invoice domain.Invoice
		if out := decode(log, event, &invoice); out != "" {
			return out
		}
		return s.outcome(log, s.subs.HandleInvoiceFailed(ctx, event, invoice))

	case domain.EventAccountUpdated:
		var account domain.Account
		if out := decode(log, event, &account); out != "" {
			return out
		}
		return s.outcome(log, s.connect.HandleAccountUpdated(ctx, event, account))

	case domain.EventAccountDeauthorized:
		var account domain.Account
		if out := decode(log, event, &account); out != "" {
			return out
		}
		return s.outcome(log, s.connect.HandleAccountDeauthorized(ctx, event, account))

	case domain.EventTransferCreated, domain.EventTransferUpdated:
		var transfer domain.Transfer
		if out := decode(log, event, &transfer); out != "" {
			return out
		}
		if transfer.Reversed {
			return s.outcome(log, s.ledger.HandleTransferReversed(ctx, event, transfer))
		}
		return s.outcome(log, s.ledger.HandleTransferCreated(ctx, event, transfer))

	case domain.EventTransferReversed:
		var transfer domain.Transfer
		if out := decode(log, event, &transfer); out != "" {
			return out
		}
		return s.outcome(log, s.ledger.HandleTransferReversed(ctx, event, transfer))

	case domain.EventFeeCreated:
		var fee domain.ApplicationFee
		if out := decode(log, event, &fee); out != "" {
			return out
		}
		return s.outcome(log, s.ledger.HandleFeeCreated(ctx, event, fee))

	case domain.EventFeeRefunded:
		var fee domain.ApplicationFee
		if out := decode(log, event, &fee); out != "" {
			return out
		}
		return s.outcome(log, s.ledger.HandleFeeRefunded(ctx, event, fee))

	default:
		log.Info("unhandled event type, acknowledging")
		return outcomeIgnored
	}
}

// outcome classifies a reconciler result. Skip-style sentinels mean the event
// was not for us or its record is gone; neither warrants a retry.
func (s *Service) outcome(log *zap.Logger, err error) string {
	switch {
	case err == nil:
		return outcomeProcessed
	case errors.Is(err, orderdomain.ErrNotOurs),
		errors.Is(err, orderdomain.ErrRecordNotFound),
		errors.Is(err, subscriptiondomain.ErrRecordNotFound):
		return outcomeSkipped
	default:
		log.Error("event reconciliation failed", zap.Error(err))
		return outcomeFailed
	}
}

func decode(log *zap.Logger, event *domain.Event, target any) string {
	if err := json.Unmarshal(event.Object, target); err != nil {
		log.Error("event payload decode failed", zap.Error(err))
		return outcomeFailed
	}
	return ""
}
