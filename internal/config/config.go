// Package config loads the daemon's runtime configuration from the
// environment (and an optional .env file), following the same
// env-with-fallback shape as the rest of the retrieved pack.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is every environment-derived setting the daemon's wiring
// needs at startup.
type Config struct {
	HTTPAddr string

	RiotRegion     string
	RiotAPIKey     string
	SchedulerSpace time.Duration

	VaultPassphrase string
	VaultDSN        string

	LogLevel string
}

// Load reads .env (if present) then the process environment. Logger
// may be nil during the bootstrap load before logging itself is
// configured.
func Load(logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := godotenv.Load(); err != nil {
		logger.Debug("config: .env not found, using process environment")
	}

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":7700"),
		RiotRegion:      getEnv("RIOT_REGION", "na1"),
		RiotAPIKey:      getEnv("RIOT_API_KEY", ""),
		SchedulerSpace:  getEnvDuration("SCHEDULER_SPACING", 50*time.Millisecond),
		VaultPassphrase: getEnv("VAULT_PASSPHRASE", ""),
		VaultDSN:        getEnv("VAULT_DSN", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.VaultPassphrase == "" {
		return nil, fmt.Errorf("config: VAULT_PASSPHRASE is required")
	}

	logger.Info("config: loaded",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("riot_region", cfg.RiotRegion),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("scheduler_spacing", cfg.SchedulerSpace),
	)
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
