package repository

import (
	"context"
	"time"

	"github.com/annpale/payments/internal/order/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, payment_reference_id, creator_id, customer_id,
			amount, creator_earnings, platform_fee, currency,
			status, video_request_id, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.PaymentReferenceID,
		order.CreatorID,
		order.CustomerID,
		order.Amount,
		order.CreatorEarnings,
		order.PlatformFee,
		order.Currency,
		order.Status,
		order.VideoRequestID,
		order.Metadata,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByPaymentReference(ctx context.Context, db *gorm.DB, paymentReferenceID string) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, payment_reference_id, creator_id, customer_id,
			amount, creator_earnings, platform_fee, currency,
			status, video_request_id, metadata, created_at, updated_at
		 FROM orders
		 WHERE payment_reference_id = ?
		 LIMIT 1`,
		paymentReferenceID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.OrderStatus, metadata datatypes.JSONMap, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		metadata,
		now,
		id,
	).Error
}

func (r *repo) CancelVideoRequest(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE video_requests
		 SET status = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ?`,
		domain.VideoRequestStatusCancelled,
		reason,
		now,
		id,
	).Error
}
