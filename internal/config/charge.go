package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChargeConfig holds operational knobs for batch charge runs. It is
// hot-reloadable so worker counts can be tuned without a restart.
type ChargeConfig struct {
	Currency     string `mapstructure:"currency"`
	BatchWorkers int    `mapstructure:"batchWorkers"`
}

func DefaultChargeConfig() ChargeConfig {
	return ChargeConfig{
		Currency:     "usd",
		BatchWorkers: 4,
	}
}

type ChargeConfigHolder struct {
	current atomic.Value // holds ChargeConfig
}

func NewChargeConfigHolder() (*ChargeConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("charge")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/chargeway/config") // Volume-mounted config
	v.AddConfigPath("/etc/chargeway")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("CHARGEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultChargeConfig()
	v.SetDefault("charge.currency", defaults.Currency)
	v.SetDefault("charge.batchWorkers", defaults.BatchWorkers)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Decoding into a defaults-initialized struct keeps omitted keys at
	// their default values: mapstructure leaves fields absent from the
	// source untouched.
	cfg := DefaultChargeConfig()
	if err := v.UnmarshalKey("charge", &cfg); err != nil {
		return nil, err
	}
	if err := validateChargeConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ChargeConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultChargeConfig()
		if err := v.UnmarshalKey("charge", &updated); err != nil {
			log.Printf("[charge-config] reload failed: %v", err)
			return
		}
		if err := validateChargeConfig(updated); err != nil {
			log.Printf("[charge-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[charge-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticChargeConfigHolder returns a holder pinned to cfg, for tests and
// callers that do not want file watching.
func NewStaticChargeConfigHolder(cfg ChargeConfig) *ChargeConfigHolder {
	holder := &ChargeConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ChargeConfigHolder) Get() ChargeConfig {
	return h.current.Load().(ChargeConfig)
}

func validateChargeConfig(cfg ChargeConfig) error {
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("charge.currency cannot be empty")
	}
	if cfg.BatchWorkers <= 0 {
		return errors.New("charge.batchWorkers must be positive")
	}
	return nil
}
