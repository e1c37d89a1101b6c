package repository

import (
	"context"
	"time"

	"github.com/annpale/payments/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.WebhookEvent) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (
			id, provider_event_id, event_type, api_version,
			live_mode, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_event_id) DO NOTHING`,
		entry.ID,
		entry.ProviderEventID,
		entry.EventType,
		entry.APIVersion,
		entry.LiveMode,
		entry.ReceivedAt,
		entry.ProcessedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, providerEventID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET processed_at = ?
		 WHERE provider_event_id = ?`,
		now,
		providerEventID,
	).Error
}
