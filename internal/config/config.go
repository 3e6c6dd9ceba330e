package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the messaging gateway.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"messaging-gateway"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"GATEWAY_PORT" envDefault:"8290"`
	LogLevel        string        `env:"GATEWAY_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"GATEWAY_LOG_FORMAT" envDefault:"console"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database (required, no default)
	DatabaseDSN string `env:"DB_POSTGRESQL_DSN,notEmpty"`

	// Database Connection Pool
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Messaging network client
	SessionStorePath string        `env:"WA_SESSION_STORE_PATH" envDefault:"./session-data"`
	ProbeInterval    time.Duration `env:"WA_PROBE_INTERVAL" envDefault:"30s"`
	StartMaxRetries  int           `env:"WA_START_MAX_RETRIES" envDefault:"3"`
	StartRetryDelay  time.Duration `env:"WA_START_RETRY_DELAY" envDefault:"2s"`

	// Duplicate send suppression
	DedupTTL        time.Duration `env:"SEND_DEDUP_TTL" envDefault:"30s"`
	DedupMaxEntries int           `env:"SEND_DEDUP_MAX_ENTRIES" envDefault:"4096"`

	// Media
	MaxMediaBytes int64 `env:"MEDIA_MAX_BYTES" envDefault:"20971520"`

	// S3 Storage Configuration
	S3Endpoint       string `env:"MEDIA_S3_ENDPOINT"`
	S3PublicEndpoint string `env:"MEDIA_S3_PUBLIC_ENDPOINT"`
	S3Region         string `env:"MEDIA_S3_REGION" envDefault:"us-east-1"`
	S3Bucket         string `env:"MEDIA_S3_BUCKET"`
	S3AccessKeyID    string `env:"MEDIA_S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"MEDIA_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle   bool   `env:"MEDIA_S3_USE_PATH_STYLE" envDefault:"true"`

	// Account registry (CRM core)
	AccountAPIURL     string        `env:"ACCOUNT_API_URL,notEmpty"`
	AccountAPIKey     string        `env:"ACCOUNT_API_KEY"`
	AccountAPITimeout time.Duration `env:"ACCOUNT_API_TIMEOUT" envDefault:"5s"`

	// Status broadcast
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"crm.session-events"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	cfg.S3PublicEndpoint = strings.TrimSpace(cfg.S3PublicEndpoint)
	cfg.AccountAPIURL = strings.TrimRight(strings.TrimSpace(cfg.AccountAPIURL), "/")

	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = 20 * 1024 * 1024
	}
	if cfg.StartMaxRetries < 0 {
		return nil, fmt.Errorf("WA_START_MAX_RETRIES must not be negative")
	}
	if cfg.DedupTTL <= 0 {
		return nil, fmt.Errorf("SEND_DEDUP_TTL must be positive")
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// BroadcastEnabled reports whether the status event broker is configured.
func (c *Config) BroadcastEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}
