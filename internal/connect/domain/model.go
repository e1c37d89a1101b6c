package domain

import (
	"time"

	"gorm.io/datatypes"
)

// StripeAccount is the local mirror of a creator's connected payout account.
// It is upserted from account.updated events and removed on deauthorization.
type StripeAccount struct {
	AccountID        string            `gorm:"primaryKey;type:text"`
	ChargesEnabled   bool              `gorm:"not null"`
	PayoutsEnabled   bool              `gorm:"not null"`
	DetailsSubmitted bool              `gorm:"not null"`
	RequirementsDue  datatypes.JSON    `gorm:"type:jsonb"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt        time.Time         `gorm:"not null"`
	UpdatedAt        time.Time         `gorm:"not null"`
}

func (StripeAccount) TableName() string { return "stripe_accounts" }

// Requirements is the serialized shape stored in RequirementsDue.
type Requirements struct {
	CurrentlyDue  []string `json:"currently_due"`
	EventuallyDue []string `json:"eventually_due"`
	PastDue       []string `json:"past_due"`
}
