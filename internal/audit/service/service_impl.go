package service

import (
	"context"
	"time"

	"github.com/annpale/payments/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("audit.service"),
		repo: p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry *domain.WebhookEvent) (bool, error) {
	inserted, err := s.repo.Insert(ctx, s.db, entry)
	if err != nil {
		s.log.Warn("webhook receipt insert failed",
			zap.String("provider_event_id", entry.ProviderEventID),
			zap.Error(err),
		)
		return false, err
	}
	return inserted, nil
}

func (s *Service) MarkProcessed(ctx context.Context, providerEventID string, now time.Time) error {
	if err := s.repo.MarkProcessed(ctx, s.db, providerEventID, now); err != nil {
		s.log.Warn("webhook receipt update failed",
			zap.String("provider_event_id", providerEventID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
