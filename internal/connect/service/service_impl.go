package service

import (
	"context"
	"encoding/json"

	"github.com/annpale/payments/internal/clock"
	"github.com/annpale/payments/internal/connect/domain"
	notificationdomain "github.com/annpale/payments/internal/notification/domain"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	Notifier notificationdomain.Dispatcher
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	notifier notificationdomain.Dispatcher
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("connect.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		notifier: p.Notifier,
	}
}

func (s *Service) HandleAccountUpdated(ctx context.Context, event *webhookdomain.Event, account webhookdomain.Account) error {
	requirements, err := json.Marshal(domain.Requirements{
		CurrentlyDue:  account.Requirements.CurrentlyDue,
		EventuallyDue: account.Requirements.EventuallyDue,
		PastDue:       account.Requirements.PastDue,
	})
	if err != nil {
		return err
	}

	now := s.clock.Now()
	mirror := domain.StripeAccount{
		AccountID:        account.ID,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
		RequirementsDue:  requirements,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Upsert(ctx, s.db, &mirror); err != nil {
		s.log.Error("stripe account upsert failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return err
	}

	if err := s.repo.TouchProfiles(ctx, s.db, account.ID, now); err != nil {
		s.log.Warn("profile refresh failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	if len(account.Requirements.PastDue) > 0 {
		s.log.Warn("stripe account has past due requirements",
			zap.String("account_id", account.ID),
			zap.Strings("past_due", account.Requirements.PastDue),
		)
	}

	return nil
}

func (s *Service) HandleAccountDeauthorized(ctx context.Context, event *webhookdomain.Event, account webhookdomain.Account) error {
	now := s.clock.Now()

	cleared, err := s.repo.ClearProfileLinks(ctx, s.db, account.ID, now)
	if err != nil {
		s.log.Error("profile unlink failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return err
	}

	if err := s.repo.Delete(ctx, s.db, account.ID); err != nil {
		s.log.Error("stripe account delete failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return err
	}

	s.log.Info("stripe account deauthorized",
		zap.String("account_id", account.ID),
		zap.Int64("profiles_unlinked", cleared),
	)

	alert := notificationdomain.SystemAlert{
		Type:     "account_deauthorized",
		Severity: notificationdomain.SeverityHigh,
		Data: map[string]any{
			"account_id":        account.ID,
			"profiles_unlinked": cleared,
		},
	}
	if err := s.notifier.SendSystemAlert(ctx, alert); err != nil {
		s.log.Warn("deauthorization alert failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	return nil
}
