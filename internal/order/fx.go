package order

import (
	"github.com/annpale/payments/internal/order/repository"
	orderservice "github.com/annpale/payments/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(orderservice.NewService),
)
