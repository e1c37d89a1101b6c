package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the local lifecycle of a creator subscription.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// providerStatus maps every provider subscription status onto a local one.
// Unknown provider statuses pass through unchanged so nothing is lost.
var providerStatus = map[string]Status{
	"active":             StatusActive,
	"trialing":           StatusActive,
	"canceled":           StatusCancelled,
	"incomplete":         StatusPending,
	"incomplete_expired": StatusFailed,
	"past_due":           StatusPaused,
	"unpaid":             StatusFailed,
}

// MapProviderStatus translates the provider's subscription status into the
// local lifecycle vocabulary.
func MapProviderStatus(status string) Status {
	if mapped, ok := providerStatus[status]; ok {
		return mapped
	}
	return Status(status)
}

// FailedPaymentThreshold is the number of consecutive failed invoices after
// which a subscription is paused instead of billed again.
const FailedPaymentThreshold = 3

// SubscriptionOrder tracks one recurring membership between a fan and a
// creator tier, mirrored from provider webhook events.
type SubscriptionOrder struct {
	ID                     snowflake.ID      `gorm:"primaryKey"`
	CheckoutSessionID      string            `gorm:"type:text;index"`
	ProviderSubscriptionID string            `gorm:"type:text;uniqueIndex"`
	ProviderCustomerID     string            `gorm:"type:text;index"`
	CreatorID              string            `gorm:"type:text;not null;index"`
	CustomerID             string            `gorm:"type:text;not null;index"`
	TierID                 string            `gorm:"type:text"`
	Status                 Status            `gorm:"type:text;not null"`
	CurrentPeriodStart     *time.Time        `gorm:""`
	CurrentPeriodEnd       *time.Time        `gorm:""`
	NextBillingDate        *time.Time        `gorm:""`
	LastPaymentStatus      string            `gorm:"type:text"`
	LastPaymentAt          *time.Time        `gorm:""`
	FailedPaymentCount     int               `gorm:"not null;default:0"`
	ActivatedAt            *time.Time        `gorm:""`
	CancelledAt            *time.Time        `gorm:""`
	Metadata               datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt              time.Time         `gorm:"not null"`
	UpdatedAt              time.Time         `gorm:"not null"`
}

func (SubscriptionOrder) TableName() string { return "subscription_orders" }
