package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// WebhookEvent is the append-only receipt log for every event the service
// accepted. The unique provider event id makes redeliveries visible.
type WebhookEvent struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	ProviderEventID string       `gorm:"type:text;not null;uniqueIndex"`
	EventType       string       `gorm:"type:text;not null;index"`
	APIVersion      string       `gorm:"type:text"`
	LiveMode        bool         `gorm:"not null"`
	ReceivedAt      time.Time    `gorm:"not null"`
	ProcessedAt     *time.Time   `gorm:""`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// Service records receipts. Recording is best effort; a failed insert is
// never allowed to fail event processing.
type Service interface {
	// Record appends a receipt for the event. It reports whether this is the
	// first time the provider event id has been seen.
	Record(ctx context.Context, entry *WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, providerEventID string, now time.Time) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, providerEventID string, now time.Time) error
}
