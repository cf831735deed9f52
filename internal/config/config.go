// Package config centralises configuration parsing for the family ledger service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values for the family ledger service.
type Config struct {
	HTTPAddress        string
	MetricsAddress     string // Empty serves /metrics on the API listener.
	PostgresURL        string // Empty selects the in-memory bridge.
	KafkaBrokers       []string
	FamilyTopic        string
	ConsumerGroupID    string // Prefix; each instance appends a unique suffix.
	SchemaRegistryURL  string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	DLQPollInterval    time.Duration // Interval between DLQ polling iterations.
	DLQMaxRetries      int           // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay       time.Duration // Base delay used for exponential backoff.
	DLQBatchSize       int
	DateCheckInterval  time.Duration
	Timezone           string
	DeviceStatePath    string
	MotivationURL      string
	HTTPTimeout        time.Duration
	CORSOrigin         string
	Log                LogConfig
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level      string
	File       string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads environment variables into Config, applying defaults for local dev.
func Load() Config {
	cfg := Config{
		HTTPAddress:        getEnv("HTTP_ADDRESS", ":8080"),
		MetricsAddress:     getEnv("METRICS_ADDRESS", ""),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		FamilyTopic:        getEnv("FAMILY_TOPIC", "family_updates"),
		ConsumerGroupID:    getEnv("CONSUMER_GROUP_ID", "family-ledger"),
		SchemaRegistryURL:  getEnv("SCHEMA_REGISTRY_URL", "http://schema-registry:8081"),
		OutboxPollInterval: getDurationEnv("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:    getIntEnv("OUTBOX_BATCH_SIZE", 25),
		DLQPollInterval:    getDurationEnv("DLQ_POLL_INTERVAL", 30*time.Second),
		DLQMaxRetries:      getIntEnv("DLQ_MAX_RETRIES", 5),
		DLQBaseDelay:       getDurationEnv("DLQ_BASE_DELAY", time.Minute),
		DLQBatchSize:       getIntEnv("DLQ_BATCH_SIZE", 50),
		DateCheckInterval:  getDurationEnv("DATE_CHECK_INTERVAL", time.Minute),
		Timezone:           getEnv("TIMEZONE", "Local"),
		DeviceStatePath:    getEnv("DEVICE_STATE_PATH", "family-ledger.yaml"),
		MotivationURL:      getEnv("MOTIVATION_URL", ""),
		HTTPTimeout:        getDurationEnv("HTTP_TIMEOUT", 5*time.Second),
		CORSOrigin:         getEnv("CORS_ORIGIN", "*"),
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			Console:    getBoolEnv("LOG_CONSOLE", true),
			MaxSizeMB:  getIntEnv("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntEnv("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getIntEnv("LOG_MAX_AGE_DAYS", 30),
		},
	}

	brokers := getEnv("KAFKA_BROKERS", "kafka:9092")
	cfg.KafkaBrokers = splitAndTrim(brokers)
	return cfg
}

// Location resolves Timezone. "Local" and "" use the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Durable reports whether Postgres and Kafka back the sync bridge.
func (c Config) Durable() bool {
	return c.PostgresURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
