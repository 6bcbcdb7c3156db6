package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port            string
	DBPath          string
	LogLevel        string
	SweepSchedule   string
	AccrualSchedule string
	DefaultLateFee  decimal.Decimal
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "contractledger.db"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "0 6 * * *"),   // daily overdue sweep
		AccrualSchedule: getEnv("ACCRUAL_SCHEDULE", "0 7 1 * *"), // monthly accrual batch
	}

	fee, err := decimal.NewFromString(getEnv("DEFAULT_LATE_FEE", "25.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_LATE_FEE: %w", err)
	}
	cfg.DefaultLateFee = fee

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DB_PATH is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
