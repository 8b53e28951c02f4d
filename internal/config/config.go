package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends for market state. Memory keeps nothing across restarts.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds all runtime configuration for the market service.
type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	RulesPath       string        `env:"MARKET_RULES_PATH"`
	Storage         string        `env:"MARKET_STORAGE" envDefault:"sqlite"`
	DatabasePath    string        `env:"DATABASE_PATH" envDefault:"data/market.db"`
	ArchiveDir      string        `env:"TRADE_ARCHIVE_DIR"`
	SettlementURL   string        `env:"SETTLEMENT_URL"`
	PaymentTimeout  time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"5s"`
	WebhookTimeout  time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", cfg.Port)
	}
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}
	if cfg.Storage != StorageSQLite && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("invalid MARKET_STORAGE: %q, must be one of: %s, %s", cfg.Storage, StorageSQLite, StorageMemory)
	}
	for name, d := range map[string]time.Duration{
		"PAYMENT_TIMEOUT":  cfg.PaymentTimeout,
		"WEBHOOK_TIMEOUT":  cfg.WebhookTimeout,
		"READ_TIMEOUT":     cfg.ReadTimeout,
		"WRITE_TIMEOUT":    cfg.WriteTimeout,
		"IDLE_TIMEOUT":     cfg.IdleTimeout,
		"SHUTDOWN_TIMEOUT": cfg.ShutdownTimeout,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("invalid %s: %v, must be positive", name, d)
		}
	}
	return &cfg, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
