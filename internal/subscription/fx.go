package subscription

import (
	"github.com/annpale/payments/internal/subscription/repository"
	subscriptionservice "github.com/annpale/payments/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(subscriptionservice.NewService),
)
