package ledger

import (
	"github.com/annpale/payments/internal/ledger/repository"
	ledgerservice "github.com/annpale/payments/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(ledgerservice.NewService),
)
