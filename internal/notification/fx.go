package notification

import (
	notificationservice "github.com/annpale/payments/internal/notification/service"
	"github.com/annpale/payments/internal/providers/email"
	"github.com/annpale/payments/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	slack.Module,
	email.Module,
	fx.Provide(notificationservice.NewService),
)
