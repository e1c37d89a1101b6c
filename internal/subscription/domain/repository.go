package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByCheckoutSession(ctx context.Context, db *gorm.DB, checkoutSessionID string) (*SubscriptionOrder, error)
	FindByProviderSubscription(ctx context.Context, db *gorm.DB, providerSubscriptionID string) (*SubscriptionOrder, error)
	FindPendingByProviderCustomer(ctx context.Context, db *gorm.DB, providerCustomerID string) (*SubscriptionOrder, error)
	Update(ctx context.Context, db *gorm.DB, order *SubscriptionOrder) error
}
