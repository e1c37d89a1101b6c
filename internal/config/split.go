package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SplitConfig is the revenue split applied to every paid video request.
// Percentages are of the customer-paid total; the platform fee is rounded
// to the nearest major currency unit and the creator absorbs the remainder.
type SplitConfig struct {
	PlatformFeePercent int `mapstructure:"platformFeePercent"`
}

func DefaultSplitConfig() SplitConfig {
	return SplitConfig{PlatformFeePercent: 30}
}

// SplitConfigHolder serves the current revenue split and hot-reloads it
// when the mounted payments.yml changes.
type SplitConfigHolder struct {
	current atomic.Value // holds SplitConfig
}

func NewSplitConfigHolder() (*SplitConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("payments")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/annpale/config") // Volume-mounted config
	v.AddConfigPath("/etc/annpale")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("ANNPALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSplitConfig()
	v.SetDefault("split.platformFeePercent", defaults.PlatformFeePercent)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &SplitConfigHolder{}

	load := func() error {
		var cfg SplitConfig
		if err := v.UnmarshalKey("split", &cfg); err != nil {
			return err
		}
		if err := validateSplitConfig(cfg); err != nil {
			return err
		}
		holder.current.Store(cfg)
		return nil
	}

	if err := load(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := load(); err != nil {
			log.Printf("split config reload rejected: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

// Current returns the active split configuration.
func (h *SplitConfigHolder) Current() SplitConfig {
	if h == nil {
		return DefaultSplitConfig()
	}
	if cfg, ok := h.current.Load().(SplitConfig); ok {
		return cfg
	}
	return DefaultSplitConfig()
}

func validateSplitConfig(cfg SplitConfig) error {
	if cfg.PlatformFeePercent < 0 || cfg.PlatformFeePercent > 100 {
		return errors.New("platformFeePercent must be between 0 and 100")
	}
	return nil
}
