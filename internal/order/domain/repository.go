package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByPaymentReference(ctx context.Context, db *gorm.DB, paymentReferenceID string) (*Order, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status OrderStatus, metadata datatypes.JSONMap, now time.Time) error
	CancelVideoRequest(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) error
}
