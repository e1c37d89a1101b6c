package repository

import (
	"context"
	"time"

	"github.com/annpale/payments/internal/ledger/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Merge(ctx context.Context, db *gorm.DB, genID *snowflake.Node, providerReferenceID string, platformFee int64, merge map[string]any, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct {
			ID          snowflake.ID      `gorm:"column:id"`
			PlatformFee int64             `gorm:"column:platform_fee"`
			Metadata    datatypes.JSONMap `gorm:"column:metadata"`
		}
		query := `SELECT id, platform_fee, metadata
			 FROM transactions
			 WHERE provider_reference_id = ?
			 LIMIT 1`
		// sqlite has no row locks; its writes serialize on the file anyway.
		if name := tx.Dialector.Name(); name == "postgres" || name == "mysql" {
			query += " FOR UPDATE"
		}
		if err := tx.WithContext(ctx).Raw(query, providerReferenceID).Scan(&row).Error; err != nil {
			return err
		}

		if row.Metadata == nil {
			row.Metadata = datatypes.JSONMap{}
		}
		for key, value := range merge {
			if key == "" {
				continue
			}
			row.Metadata[key] = value
		}
		if platformFee >= 0 {
			row.PlatformFee = platformFee
		}

		if row.ID == 0 {
			return tx.WithContext(ctx).Exec(
				`INSERT INTO transactions (id, provider_reference_id, platform_fee, metadata, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				genID.Generate(),
				providerReferenceID,
				row.PlatformFee,
				row.Metadata,
				now,
				now,
			).Error
		}

		return tx.WithContext(ctx).Exec(
			`UPDATE transactions
			 SET platform_fee = ?, metadata = ?, updated_at = ?
			 WHERE id = ?`,
			row.PlatformFee,
			row.Metadata,
			now,
			row.ID,
		).Error
	})
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, providerReferenceID string) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider_reference_id, platform_fee, metadata, created_at, updated_at
		 FROM transactions
		 WHERE provider_reference_id = ?
		 LIMIT 1`,
		providerReferenceID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
