package config

import (
	"fmt"
	"os"
)

// Config holds the process configuration, snapshotted from the
// environment at startup. Load a .env file first (main does) if one
// exists.
type Config struct {
	Port        string
	Environment string

	DatabaseURL string

	JWTSecret string

	LogLevel string
	LogFile  string

	AWSRegion  string
	AWSBucket  string
	CDNBaseURL string
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:     getEnvOrDefault("LOG_FILE", "server.log"),
		AWSRegion:   os.Getenv("AWS_REGION"),
		AWSBucket:   os.Getenv("AWS_BUCKET"),
		CDNBaseURL:  os.Getenv("CDN_BASE_URL"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
