// Package config provides configuration parsing and validation for the data processor.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/shared"
)

const (
	// DefaultPollInterval is the delay between the end of one pass and the start of the next.
	DefaultPollInterval = 15 * time.Minute
	// DefaultOperationTimeout bounds every individual I/O call made during a pass.
	DefaultOperationTimeout = 30 * time.Second
)

// Config holds all configuration parameters for the data processor.
type Config struct {
	MongoURI         string
	MongoDatabase    string
	MongoCollection  string
	PostgresDSN      string
	APIBaseURL       string
	ProcessingLogURL string
	NotificationURL  string
	KafkaBrokers     string
	AlarmsTopic      string
	RedisAddr        string
	HTTPPort         string
	PollInterval     time.Duration
	OperationTimeout time.Duration
	LogLevel         string
}

// RegisterFlags binds every configuration field to a command-line flag whose
// default comes from the matching environment variable.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.MongoURI, "mongo-uri", shared.GetEnvOrDefault("MONGO_URL", ""), "MongoDB connection URI for the staging store")
	fs.StringVar(&c.MongoDatabase, "mongo-db", shared.GetEnvOrDefault("MONGO_DB_NAME", ""), "MongoDB database holding pending readings")
	fs.StringVar(&c.MongoCollection, "mongo-collection", shared.GetEnvOrDefault("MONGO_COLLECTION_NAME", ""), "MongoDB collection holding pending readings")
	fs.StringVar(&c.PostgresDSN, "postgres-dsn", shared.GetEnvOrDefault("DATABASE_URL", ""), "PostgreSQL connection string")
	fs.StringVar(&c.APIBaseURL, "api-base-url", shared.GetEnvOrDefault("API_BASE_URL", "http://localhost:3001/api"), "Base URL of the station API")
	fs.StringVar(&c.ProcessingLogURL, "processing-log-url", shared.GetEnvOrDefault("API_URL", ""), "Endpoint receiving a processing-log POST per document (optional)")
	fs.StringVar(&c.NotificationURL, "notification-url", shared.GetEnvOrDefault("WS_URL", ""), "Websocket URL for processing notifications (optional)")
	fs.StringVar(&c.KafkaBrokers, "kafka-brokers", shared.GetEnvOrDefault("KAFKA_BROKERS", ""), "Kafka broker addresses for alarm events (comma-separated, optional)")
	fs.StringVar(&c.AlarmsTopic, "alarms-topic", shared.GetEnvOrDefault("ALARMS_CREATED_TOPIC", "alarms.created"), "Kafka topic for created alarms")
	fs.StringVar(&c.RedisAddr, "redis-addr", shared.GetEnvOrDefault("REDIS_ADDR", ""), "Redis server address for service metrics (optional)")
	fs.StringVar(&c.HTTPPort, "http-port", shared.GetEnvOrDefault("PORT", "3000"), "Port for the health and metrics HTTP server")
	fs.DurationVar(&c.PollInterval, "poll-interval", shared.GetEnvDurationOrDefault("POLL_INTERVAL", DefaultPollInterval), "Delay between processing passes")
	fs.DurationVar(&c.OperationTimeout, "operation-timeout", shared.GetEnvDurationOrDefault("OPERATION_TIMEOUT", DefaultOperationTimeout), "Timeout applied to each store, API and notification call")
	fs.StringVar(&c.LogLevel, "log-level", shared.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
}

// Validate checks that all required configuration fields are set and have valid values.
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("mongo-uri cannot be empty")
	}
	if c.MongoDatabase == "" {
		return fmt.Errorf("mongo-db cannot be empty")
	}
	if c.MongoCollection == "" {
		return fmt.Errorf("mongo-collection cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("api-base-url cannot be empty")
	}
	if c.KafkaBrokers != "" && c.AlarmsTopic == "" {
		return fmt.Errorf("alarms-topic cannot be empty when kafka-brokers is set")
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be > 0")
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation-timeout must be > 0")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts the configured log level name into a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log-level %q is not one of debug, info, warn, error", c.LogLevel)
	}
}
