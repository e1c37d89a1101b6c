package service

import (
	"context"
	"time"

	"github.com/annpale/payments/internal/clock"
	notificationdomain "github.com/annpale/payments/internal/notification/domain"
	obsmetrics "github.com/annpale/payments/internal/observability/metrics"
	"github.com/annpale/payments/internal/subscription/domain"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	Notifier   notificationdomain.Dispatcher
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	notifier   notificationdomain.Dispatcher
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) HandleCheckoutCompleted(ctx context.Context, event *webhookdomain.Event, session webhookdomain.CheckoutSession) error {
	if session.Mode != "subscription" {
		s.log.Info("checkout session is not a subscription, skipping",
			zap.String("event_id", event.ID),
			zap.String("session_id", session.ID),
			zap.String("mode", session.Mode),
		)
		return nil
	}

	order, err := s.repo.FindByCheckoutSession(ctx, s.db, session.ID)
	if err != nil {
		s.log.Error("subscription lookup failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return err
	}
	if order == nil {
		s.log.Info("no subscription order for checkout session, skipping",
			zap.String("session_id", session.ID),
			zap.String("event_id", event.ID),
		)
		return domain.ErrRecordNotFound
	}

	now := s.clock.Now()
	previous := order.Status
	order.ProviderSubscriptionID = session.Subscription
	order.ProviderCustomerID = session.Customer
	order.Status = domain.StatusActive
	order.ActivatedAt = &now
	order.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, order); err != nil {
		s.log.Error("subscription activation failed",
			zap.String("subscription_order_id", order.ID.String()),
			zap.Error(err),
		)
		return err
	}

	s.obsMetrics.RecordSubscriptionTransition(ctx, string(previous), string(domain.StatusActive))

	notification := notificationdomain.CreatorNotification{
		CreatorID: order.CreatorID,
		Type:      "new_subscriber",
		Title:     "New subscriber",
		Body:      "You have a new subscriber.",
		Data: map[string]any{
			"subscription_order_id": order.ID.String(),
			"customer_id":           order.CustomerID,
			"tier_id":               order.TierID,
		},
	}
	if err := s.notifier.SendCreatorNotification(ctx, notification); err != nil {
		s.log.Warn("subscriber notification failed",
			zap.String("creator_id", order.CreatorID),
			zap.Error(err),
		)
	}

	return nil
}

func (s *Service) HandleSubscriptionCreated(ctx context.Context, event *webhookdomain.Event, sub webhookdomain.Subscription) error {
	order, err := s.repo.FindByProviderSubscription(ctx, s.db, sub.ID)
	if err != nil {
		return err
	}
	if order == nil {
		// Checkout completion may not have linked the subscription id yet.
		order, err = s.repo.FindPendingByProviderCustomer(ctx, s.db, sub.Customer)
		if err != nil {
			return err
		}
	}
	if order == nil {
		s.log.Info("no subscription order for created subscription, skipping",
			zap.String("provider_subscription_id", sub.ID),
			zap.String("event_id", event.ID),
		)
		return domain.ErrRecordNotFound
	}

	now := s.clock.Now()
	previous := order.Status
	order.ProviderSubscriptionID = sub.ID
	order.ProviderCustomerID = sub.Customer
	order.Status = domain.StatusActive
	applyPeriods(order, sub)
	if order.ActivatedAt == nil {
		order.ActivatedAt = &now
	}
	order.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, order); err != nil {
		return err
	}
	s.obsMetrics.RecordSubscriptionTransition(ctx, string(previous), string(domain.StatusActive))
	return nil
}

func (s *Service) HandleSubscriptionUpdated(ctx context.Context, event *webhookdomain.Event, sub webhookdomain.Subscription) error {
	order, err := s.repo.FindByProviderSubscription(ctx, s.db, sub.ID)
	if err != nil {
		return err
	}
	if order == nil {
		s.log.Info("no subscription order for updated subscription, skipping",
			zap.String("provider_subscription_id", sub.ID),
			zap.String("event_id", event.ID),
		)
		return domain.ErrRecordNotFound
	}

	now := s.clock.Now()
	previous := order.Status
	order.Status = domain.MapProviderStatus(sub.Status)
	applyPeriods(order, sub)
	order.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, order); err != nil {
		return err
	}
	if previous != order.Status {
		s.obsMetrics.RecordSubscriptionTransition(ctx, string(previous), string(order.Status))
	}
	return nil
}

func (s *Service) HandleSubscriptionDeleted(ctx context.Context, event *webhookdomain.Event, sub webhookdomain.Subscription) error {
	order, err := s.repo.FindByProviderSubscription(ctx, s.db, sub.ID)
	if err != nil {
		return err
	}
	if order == nil {
		s.log.Info("no subscription order for deleted subscription, skipping",
			zap.String("provider_subscription_id", sub.ID),
			zap.String("event_id", event.ID),
		)
		return domain.ErrRecordNotFound
	}

	now := s.clock.Now()
	previous := order.Status
	order.Status = domain.StatusCancelled
	order.CancelledAt = &now
	order.NextBillingDate = nil
	order.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, order); err != nil {
		return err
	}
	s.obsMetrics.RecordSubscriptionTransition(ctx, string(previous), string(domain.StatusCancelled))
	return nil
}

func (s *Service) HandleInvoiceSucceeded(ctx context.Context, event *webhookdomain.Event, invoice webhookdomain.Invoice) error {
	if invoice.Subscription == "" {
		return nil
	}
	order, err := s.repo.FindByProviderSubscription(ctx, s.db, invoice.Subscription)
	if err != nil {
		return err
	}
	if order == nil {
		s.log.Info("no subscription order for paid invoice, skipping",
			zap.String("provider_subscription_id", invoice.Subscription),
			zap.String("invoice_id", invoice.ID),
		)
		return domain.ErrRecordNotFound
	}

	now := s.clock.Now()
	order.LastPaymentStatus = "succeeded"
	order.LastPaymentAt = &now
	order.FailedPaymentCount = 0
	order.UpdatedAt = now
	return s.repo.Update(ctx, s.db, order)
}

func (s *Service) HandleInvoiceFailed(ctx context.Context, event *webhookdomain.Event, invoice webhookdomain.Invoice) error {
	if invoice.Subscription == "" {
		return nil
	}
	order, err := s.repo.FindByProviderSubscription(ctx, s.db, invoice.Subscription)
	if err != nil {
		return err
	}
	if order == nil {
		s.log.Info("no subscription order for failed invoice, skipping",
			zap.String("provider_subscription_id", invoice.Subscription),
			zap.String("invoice_id", invoice.ID),
		)
		return domain.ErrRecordNotFound
	}

	now := s.clock.Now()
	previous := order.Status
	order.LastPaymentStatus = "failed"
	order.FailedPaymentCount++
	if order.FailedPaymentCount >= domain.FailedPaymentThreshold {
		order.Status = domain.StatusPaused
	}
	order.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, order); err != nil {
		return err
	}

	s.log.Warn("subscription invoice payment failed",
		zap.String("subscription_order_id", order.ID.String()),
		zap.String("invoice_id", invoice.ID),
		zap.Int("failed_payment_count", order.FailedPaymentCount),
	)

	if previous != order.Status {
		s.obsMetrics.RecordSubscriptionTransition(ctx, string(previous), string(order.Status))
		alert := notificationdomain.SystemAlert{
			Type:     "subscription_paused",
			Severity: notificationdomain.SeverityWarning,
			Data: map[string]any{
				"subscription_order_id": order.ID.String(),
				"invoice_id":            invoice.ID,
				"failed_payment_count":  order.FailedPaymentCount,
			},
		}
		if err := s.notifier.SendSystemAlert(ctx, alert); err != nil {
			s.log.Warn("subscription pause alert failed",
				zap.String("subscription_order_id", order.ID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

func applyPeriods(order *domain.SubscriptionOrder, sub webhookdomain.Subscription) {
	if sub.CurrentPeriodStart > 0 {
		start := time.Unix(sub.CurrentPeriodStart, 0).UTC()
		order.CurrentPeriodStart = &start
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		order.CurrentPeriodEnd = &end
		if !sub.CancelAtPeriodEnd {
			order.NextBillingDate = &end
		} else {
			order.NextBillingDate = nil
		}
	}
}
