package audit

import (
	"github.com/annpale/payments/internal/audit/repository"
	auditservice "github.com/annpale/payments/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(auditservice.NewService),
)
