package connect

import (
	"github.com/annpale/payments/internal/connect/repository"
	connectservice "github.com/annpale/payments/internal/connect/service"
	"go.uber.org/fx"
)

var Module = fx.Module("connect.service",
	fx.Provide(repository.Provide),
	fx.Provide(connectservice.NewService),
)
