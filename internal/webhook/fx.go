package webhook

import (
	"github.com/annpale/payments/internal/webhook/eventcache"
	webhookservice "github.com/annpale/payments/internal/webhook/service"
	"github.com/annpale/payments/internal/webhook/verifier"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(verifier.New),
	fx.Provide(eventcache.New),
	fx.Provide(webhookservice.NewService),
)
