package repository

import (
	"context"
	"time"

	"github.com/annpale/payments/internal/connect/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, account *domain.StripeAccount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stripe_accounts (
			account_id, charges_enabled, payouts_enabled, details_submitted,
			requirements_due, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			charges_enabled = excluded.charges_enabled,
			payouts_enabled = excluded.payouts_enabled,
			details_submitted = excluded.details_submitted,
			requirements_due = excluded.requirements_due,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		account.AccountID,
		account.ChargesEnabled,
		account.PayoutsEnabled,
		account.DetailsSubmitted,
		account.RequirementsDue,
		account.Metadata,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, accountID string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM stripe_accounts WHERE account_id = ?`,
		accountID,
	).Error
}

func (r *repo) TouchProfiles(ctx context.Context, db *gorm.DB, accountID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE profiles
		 SET updated_at = ?
		 WHERE stripe_account_id = ?`,
		now,
		accountID,
	).Error
}

func (r *repo) ClearProfileLinks(ctx context.Context, db *gorm.DB, accountID string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE profiles
		 SET stripe_account_id = NULL, updated_at = ?
		 WHERE stripe_account_id = ?`,
		now,
		accountID,
	)
	return result.RowsAffected, result.Error
}
