package domain

import (
	"context"
	"time"

	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"gorm.io/gorm"
)

// Profile is the slice of the creator profile this service is allowed to
// touch when an account link changes.
type Profile struct {
	ID              string    `gorm:"primaryKey;type:text"`
	StripeAccountID *string   `gorm:"type:text;index"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (Profile) TableName() string { return "profiles" }

// Service keeps the local payout-account mirror in sync with the provider.
type Service interface {
	HandleAccountUpdated(ctx context.Context, event *webhookdomain.Event, account webhookdomain.Account) error
	HandleAccountDeauthorized(ctx context.Context, event *webhookdomain.Event, account webhookdomain.Account) error
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, account *StripeAccount) error
	Delete(ctx context.Context, db *gorm.DB, accountID string) error
	TouchProfiles(ctx context.Context, db *gorm.DB, accountID string, now time.Time) error
	ClearProfileLinks(ctx context.Context, db *gorm.DB, accountID string, now time.Time) (int64, error)
}
