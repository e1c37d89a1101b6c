package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Merge reads the transaction row for providerReferenceID under a row
	// lock, merges the given keys into its metadata and writes it back,
	// creating the row when absent. platformFee < 0 leaves the column alone.
	Merge(ctx context.Context, db *gorm.DB, genID *snowflake.Node, providerReferenceID string, platformFee int64, merge map[string]any, now time.Time) error

	Find(ctx context.Context, db *gorm.DB, providerReferenceID string) (*Transaction, error)
}
