package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/annpale/payments/internal/config"
	notificationdomain "github.com/annpale/payments/internal/notification/domain"
	obsmetrics "github.com/annpale/payments/internal/observability/metrics"
	"github.com/annpale/payments/internal/providers/email"
	"github.com/annpale/payments/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Slack      slack.Provider
	Email      email.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	alertChannel string
	slack        slack.Provider
	email        email.Provider
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) notificationdomain.Dispatcher {
	return &Service{
		log:          p.Log.Named("notification.service"),
		alertChannel: p.Cfg.SlackAlertChannel,
		slack:        p.Slack,
		email:        p.Email,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) SendCreatorNotification(ctx context.Context, n notificationdomain.CreatorNotification) error {
	if strings.TrimSpace(n.CreatorID) == "" {
		return fmt.Errorf("creator notification missing creator id")
	}

	s.log.Info("creator notification",
		zap.String("creator_id", n.CreatorID),
		zap.String("type", n.Type),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	)

	outcome := "ok"
	if addr := readEmail(n.Data); addr != "" {
		if err := s.email.Send(ctx, []string{addr}, n.Title, n.Body); err != nil {
			outcome = "error"
			s.obsMetrics.RecordNotification(ctx, "creator", outcome)
			return err
		}
	}
	s.obsMetrics.RecordNotification(ctx, "creator", outcome)
	return nil
}

func (s *Service) SendNotification(ctx context.Context, recipientID, title, body string) error {
	if strings.TrimSpace(recipientID) == "" {
		return fmt.Errorf("notification missing recipient id")
	}

	s.log.Info("user notification",
		zap.String("recipient_id", recipientID),
		zap.String("title", title),
		zap.String("body", body),
	)
	s.obsMetrics.RecordNotification(ctx, "user", "ok")
	return nil
}

func (s *Service) SendSystemAlert(ctx context.Context, alert notificationdomain.SystemAlert) error {
	severity := strings.TrimSpace(alert.Severity)
	if severity == "" {
		severity = notificationdomain.SeverityWarning
	}

	s.log.Warn("system alert",
		zap.String("alert_type", alert.Type),
		zap.String("severity", severity),
		zap.Any("data", alert.Data),
	)

	message := fmt.Sprintf("[%s] %s", strings.ToUpper(severity), alert.Type)
	if len(alert.Data) > 0 {
		if encoded, err := json.Marshal(alert.Data); err == nil {
			message = message + "\n```" + string(encoded) + "```"
		}
	}

	if err := s.slack.PostMessage(ctx, s.alertChannel, message); err != nil {
		s.obsMetrics.RecordNotification(ctx, "alert", "error")
		return err
	}
	s.obsMetrics.RecordNotification(ctx, "alert", "ok")
	return nil
}

func readEmail(data map[string]any) string {
	if data == nil {
		return ""
	}
	if value, ok := data["email"].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
