package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Transaction accumulates transfer and application-fee state for one provider
// charge or payment intent as separate events arrive over time. Metadata
// merges are read-modify-write per key; the pre-existing map is never
// silently dropped.
type Transaction struct {
	ID                  snowflake.ID      `gorm:"primaryKey"`
	ProviderReferenceID string            `gorm:"type:text;not null;uniqueIndex"`
	PlatformFee         int64             `gorm:"not null;default:0"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt           time.Time         `gorm:"not null"`
	UpdatedAt           time.Time         `gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

// Refund status values tracked in transaction metadata.
const (
	RefundStatusSucceeded  = "succeeded"
	RefundStatusFailed     = "failed"
	RefundStatusProcessing = "processing"
)

// MapRefundStatus maps the provider's refund status onto the tracked set.
func MapRefundStatus(providerStatus string) string {
	switch providerStatus {
	case "succeeded":
		return RefundStatusSucceeded
	case "failed":
		return RefundStatusFailed
	default:
		return RefundStatusProcessing
	}
}
