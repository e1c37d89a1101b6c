package stripe

import (
	"github.com/annpale/payments/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.stripe",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Client {
	if cfg.StripeAPIKey == "" {
		return NoOpClient{}
	}
	return NewHTTPClient(Config{
		APIKey:  cfg.StripeAPIKey,
		BaseURL: cfg.StripeAPIBaseURL,
	})
}
