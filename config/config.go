// Package config reads the server configuration from the environment.
//
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int
	DBPath              string
	CORSOrigins         []string
	MaintenanceInterval time.Duration
	LogMode             string // development | production
	SettingsFile        string
}

// Load reads the configuration, applying defaults for unset keys.
func Load() (*Config, error) {
	// a missing .env is fine, the environment alone is enough
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the process environment without touching .env files.
func FromEnv() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("MAINTENANCE_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAINTENANCE_INTERVAL: %w", err)
	}

	cfg := &Config{
		Port:                port,
		DBPath:              getEnv("DB_PATH", "payroll.db"),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "*")),
		MaintenanceInterval: interval,
		LogMode:             getEnv("LOG_MODE", "development"),
		SettingsFile:        getEnv("SETTINGS_FILE", ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("missing DB_PATH")
	}
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive, got %s", c.MaintenanceInterval)
	}
	switch c.LogMode {
	case "development", "production":
	default:
		return fmt.Errorf("invalid LOG_MODE %q", c.LogMode)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
