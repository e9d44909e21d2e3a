// Package config provides configuration structures and validation for the ledger services.
// Values come from an optional .env file in ./configs, overridden by environment variables,
// and are validated once at startup so a misconfigured service refuses to boot.
package config

import (
	"errors"
	"strings"
	"time"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds the complete application configuration.
// Subsystems that can be switched off (Kafka, audit, metrics) are only validated when enabled.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Storage     StorageConfig
	Ledger      LedgerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Audit       AuditConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Metrics     MetricsConfig
	RateLimit   RateLimitConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// StorageConfig selects the ledger backend
type StorageConfig struct {
	Driver string // postgres or memory
}

// LedgerConfig bounds a single atomic update against the store
type LedgerConfig struct {
	MaxRetries   int           // Retries after a serialization failure or deadlock
	RetryBackoff time.Duration // Base delay, doubled on every retry
	TxTimeout    time.Duration // Upper bound for one attempt
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Enabled           bool
	Brokers           string
	TransferTopic     string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// AuditConfig controls the Mongo audit trail and the breaker guarding writes to it
type AuditConfig struct {
	Enabled    bool
	Collection string
	Breaker    BreakerConfig
}

// BreakerConfig mirrors gobreaker.Settings
type BreakerConfig struct {
	MaxRequests         uint32        // Trial requests allowed while half-open
	Interval            time.Duration // Closed-state count reset period
	Timeout             time.Duration // Open-state duration before half-open
	ConsecutiveFailures uint32        // Failures that trip the breaker
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of retry attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// RateLimitConfig configures the per-client token bucket; zero RPS disables it
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// validate performs validation of all configuration values,
// collecting every problem so they can be fixed in one pass
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate storage and ledger config
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		validationErrors = append(validationErrors, c.Postgres.validate()...)
	case StorageDriverMemory:
	default:
		validationErrors = append(validationErrors, "STORAGE_DRIVER must be one of postgres, memory")
	}
	if c.Ledger.MaxRetries < 0 {
		validationErrors = append(validationErrors, "LEDGER_MAX_RETRIES must not be negative")
	}
	if c.Ledger.RetryBackoff <= 0 {
		validationErrors = append(validationErrors, "LEDGER_RETRY_BACKOFF must be greater than 0")
	}
	if c.Ledger.TxTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_TX_TIMEOUT must be greater than 0")
	}

	if c.Kafka.Enabled {
		validationErrors = append(validationErrors, c.Kafka.validate()...)
	}

	if c.Audit.Enabled {
		validationErrors = append(validationErrors, c.MongoDB.validate()...)
		if c.Audit.Collection == "" {
			validationErrors = append(validationErrors, "AUDIT_COLLECTION is required")
		}
		if c.Audit.Breaker.ConsecutiveFailures == 0 {
			validationErrors = append(validationErrors, "AUDIT_BREAKER_CONSECUTIVE_FAILURES must be greater than 0")
		}
		if c.Audit.Breaker.Timeout <= 0 {
			validationErrors = append(validationErrors, "AUDIT_BREAKER_TIMEOUT must be greater than 0")
		}
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		validationErrors = append(validationErrors, "METRICS_PATH must start with /")
	}
	if c.RateLimit.RPS < 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_BURST must be greater than 0 when rate limiting is enabled")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

func (k KafkaConfig) validate() []string {
	var errs []string
	if len(k.Brokers) == 0 {
		errs = append(errs, "KAFKA_BROKERS is required")
	}
	if k.TransferTopic == "" {
		errs = append(errs, "KAFKA_TRANSFER_TOPIC is required")
	}
	if k.ConsumerGroup == "" {
		errs = append(errs, "KAFKA_CONSUMER_GROUP is required")
	}
	if k.MinBytes <= 0 {
		errs = append(errs, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if k.MaxBytes <= 0 {
		errs = append(errs, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if k.MaxWait <= 0 {
		errs = append(errs, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if k.DLQTopic == "" {
		errs = append(errs, "KAFKA_DLQ_TOPIC is required")
	}
	return errs
}

func (p PostgresConfig) validate() []string {
	var errs []string
	if p.URL == "" {
		errs = append(errs, "POSTGRES_URL is required")
	}
	if p.MaxConns <= 0 {
		errs = append(errs, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if p.MinConns <= 0 {
		errs = append(errs, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if p.ConnMaxLifetime <= 0 {
		errs = append(errs, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if p.ConnMaxIdleTime <= 0 {
		errs = append(errs, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}
	return errs
}

func (m MongoDBConfig) validate() []string {
	var errs []string
	if m.URI == "" {
		errs = append(errs, "MONGO_URI is required")
	}
	if m.Database == "" {
		errs = append(errs, "MONGO_DATABASE is required")
	}
	if m.Timeout <= 0 {
		errs = append(errs, "MONGO_TIMEOUT must be greater than 0")
	}
	if m.MaxPoolSize <= 0 {
		errs = append(errs, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if m.MinPoolSize <= 0 {
		errs = append(errs, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if m.MaxConnIdleTime <= 0 {
		errs = append(errs, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}
	return errs
}
