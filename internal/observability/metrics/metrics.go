package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	webhookEvents           metric.Int64Counter
	ordersCreated           metric.Int64Counter
	subscriptionTransitions metric.Int64Counter
	notifications           metric.Int64Counter
	ledgerMerges            metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "annpale-payments"
	}
	meter := provider.Meter(name)

	webhookEvents, err := meter.Int64Counter("annpale_webhook_events_total")
	if err != nil {
		return nil, err
	}
	ordersCreated, err := meter.Int64Counter("annpale_orders_created_total")
	if err != nil {
		return nil, err
	}
	subscriptionTransitions, err := meter.Int64Counter("annpale_subscription_transitions_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("annpale_notifications_total")
	if err != nil {
		return nil, err
	}
	ledgerMerges, err := meter.Int64Counter("annpale_ledger_merges_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		webhookEvents:           webhookEvents,
		ordersCreated:           ordersCreated,
		subscriptionTransitions: subscriptionTransitions,
		notifications:           notifications,
		ledgerMerges:            ledgerMerges,
	}, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.TrimSpace(protocol) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}

// RecordWebhookEvent counts one routed webhook event by type and outcome.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	))
}

// RecordOrderCreated counts one order insert.
func (m *Metrics) RecordOrderCreated(ctx context.Context) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

// RecordSubscriptionTransition counts one subscription status transition.
func (m *Metrics) RecordSubscriptionTransition(ctx context.Context, from, to string) {
	if m == nil || m.subscriptionTransitions == nil {
		return
	}
	m.subscriptionTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordNotification counts one dispatched notification by kind and outcome.
func (m *Metrics) RecordNotification(ctx context.Context, kind, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

// RecordLedgerMerge counts one transaction metadata merge by event family.
func (m *Metrics) RecordLedgerMerge(ctx context.Context, family string) {
	if m == nil || m.ledgerMerges == nil {
		return
	}
	m.ledgerMerges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("family", family),
	))
}
