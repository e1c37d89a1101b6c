package repository

import (
	"context"

	"github.com/annpale/payments/internal/subscription/domain"
	"gorm.io/gorm"
)

const selectColumns = `id, checkout_session_id, provider_subscription_id, provider_customer_id,
	creator_id, customer_id, tier_id, status,
	current_period_start, current_period_end, next_billing_date,
	last_payment_status, last_payment_at, failed_payment_count, activated_at, cancelled_at,
	metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByCheckoutSession(ctx context.Context, db *gorm.DB, checkoutSessionID string) (*domain.SubscriptionOrder, error) {
	return r.findOne(ctx, db,
		`SELECT `+selectColumns+`
		 FROM subscription_orders
		 WHERE checkout_session_id = ?
		 LIMIT 1`,
		checkoutSessionID,
	)
}

func (r *repo) FindByProviderSubscription(ctx context.Context, db *gorm.DB, providerSubscriptionID string) (*domain.SubscriptionOrder, error) {
	return r.findOne(ctx, db,
		`SELECT `+selectColumns+`
		 FROM subscription_orders
		 WHERE provider_subscription_id = ?
		 LIMIT 1`,
		providerSubscriptionID,
	)
}

func (r *repo) FindPendingByProviderCustomer(ctx context.Context, db *gorm.DB, providerCustomerID string) (*domain.SubscriptionOrder, error) {
	return r.findOne(ctx, db,
		`SELECT `+selectColumns+`
		 FROM subscription_orders
		 WHERE provider_customer_id = ? AND status = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		providerCustomerID,
		domain.StatusPending,
	)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.SubscriptionOrder) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscription_orders
		 SET checkout_session_id = ?, provider_subscription_id = ?, provider_customer_id = ?,
			status = ?, current_period_start = ?, current_period_end = ?, next_billing_date = ?,
			last_payment_status = ?, last_payment_at = ?, failed_payment_count = ?, activated_at = ?, cancelled_at = ?,
			metadata = ?, updated_at = ?
		 WHERE id = ?`,
		order.CheckoutSessionID,
		order.ProviderSubscriptionID,
		order.ProviderCustomerID,
		order.Status,
		order.CurrentPeriodStart,
		order.CurrentPeriodEnd,
		order.NextBillingDate,
		order.LastPaymentStatus,
		order.LastPaymentAt,
		order.FailedPaymentCount,
		order.ActivatedAt,
		order.CancelledAt,
		order.Metadata,
		order.UpdatedAt,
		order.ID,
	).Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.SubscriptionOrder, error) {
	var item domain.SubscriptionOrder
	err := db.WithContext(ctx).Raw(query, args...).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
