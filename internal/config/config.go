package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppEnv        string
	Port          string
	RedisURL      string
	DatabaseURL   string
	ResultsAPIURL string
	LogLevel      string
	LogFormat     string

	// Socket endpoint limits
	MaxConnections       int64
	MaxConnectionsPerIP  int
	ConnectionsPerSecond float64
	ConnectionBurst      int

	// Delivery queue
	QueueName string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		ResultsAPIURL: getEnv("RESULTS_API_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		QueueName:     getEnv("QUEUE_NAME", "performance_queue"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ResultsAPIURL == "" {
		return nil, fmt.Errorf("RESULTS_API_URL is required")
	}

	var err error
	if cfg.MaxConnections, err = getEnvInt64("MAX_CONNECTIONS", 5000); err != nil {
		return nil, err
	}
	if cfg.MaxConnectionsPerIP, err = getEnvInt("MAX_CONNECTIONS_PER_IP", 20); err != nil {
		return nil, err
	}
	if cfg.ConnectionsPerSecond, err = getEnvFloat("CONNECTIONS_PER_SECOND", 10); err != nil {
		return nil, err
	}
	if cfg.ConnectionBurst, err = getEnvInt("CONNECTION_BURST", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return value, nil
}
