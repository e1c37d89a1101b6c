package server

import (
	"context"
	"net/http"
	"time"

	"github.com/annpale/payments/internal/audit"
	"github.com/annpale/payments/internal/config"
	"github.com/annpale/payments/internal/connect"
	"github.com/annpale/payments/internal/ledger"
	"github.com/annpale/payments/internal/notification"
	"github.com/annpale/payments/internal/observability"
	obsmiddleware "github.com/annpale/payments/internal/observability/logger"
	obstracing "github.com/annpale/payments/internal/observability/tracing"
	"github.com/annpale/payments/internal/order"
	stripeprovider "github.com/annpale/payments/internal/providers/stripe"
	"github.com/annpale/payments/internal/subscription"
	"github.com/annpale/payments/internal/webhook"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	notification.Module,
	stripeprovider.Module,
	audit.Module,
	ledger.Module,
	order.Module,
	subscription.Module,
	connect.Module,
	webhook.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	webhookSvc webhookdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	WebhookSvc webhookdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		webhookSvc: p.WebhookSvc,
	}

	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.HandlePaymentWebhook)
}
