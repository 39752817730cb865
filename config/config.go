package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Realtime configuration
	NATSURL string

	// Treasury configuration
	TreasuryResetHour    int   // Hour in UTC when today_spent resets (0-23)
	TreasuryLowThreshold int64 // Balance below which a low-treasury event fires

	// Reconciliation configuration
	ReconcileIntervalMinutes int  // How often the reconciliation sweep runs
	ReconcileCorrective      bool // Rewrite the legacy balance field on drift

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Realtime
		NATSURL: os.Getenv("NATS_URL"),

		// Treasury settings with defaults
		TreasuryResetHour:    0, // midnight UTC
		TreasuryLowThreshold: 1000,

		// Reconciliation defaults: hourly, alert-only
		ReconcileIntervalMinutes: 60,
		ReconcileCorrective:      os.Getenv("RECONCILE_CORRECTIVE") == "true",

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if hour := os.Getenv("TREASURY_RESET_HOUR"); hour != "" {
		if parsed, err := strconv.Atoi(hour); err == nil && parsed >= 0 && parsed <= 23 {
			config.TreasuryResetHour = parsed
		}
	}
	if threshold := os.Getenv("TREASURY_LOW_THRESHOLD"); threshold != "" {
		if parsed, err := strconv.ParseInt(threshold, 10, 64); err == nil {
			config.TreasuryLowThreshold = parsed
		}
	}
	if interval := os.Getenv("RECONCILE_INTERVAL_MINUTES"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.ReconcileIntervalMinutes = parsed
		}
	}
	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
