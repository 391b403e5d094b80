package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	Redis      RedisConfig
	Settlement SettlementConfig
	OTEL       OTELConfig
	S3         S3Config
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	Environment string
	BodyLimitKB int64
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
}

// SettlementConfig tunes the settlement workflow
type SettlementConfig struct {
	ReceiptPrefix  string
	LockTTL        time.Duration
	LockWait       time.Duration
	IdempotencyTTL time.Duration
	ReceiptTTL     time.Duration
	RatePerSecond  float64
	RateBurst      int
}

// OTELConfig holds OpenTelemetry exporter configuration
type OTELConfig struct {
	Enabled        bool
	Endpoint       string
	InstanceID     string
	Token          string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// S3Config holds the receipt archive configuration. An empty endpoint disables the archive.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether receipts should be archived.
func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// Load reads configuration from environment variables
// It attempts to load from .env file first, then falls back to system env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "production")

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: env,
			BodyLimitKB: getEnvAsInt64("BODY_LIMIT_KB", 64),
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database: getEnv("MONGODB_DATABASE", "clubdesk"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Settlement: SettlementConfig{
			ReceiptPrefix:  getEnv("RECEIPT_PREFIX", "COMP"),
			LockTTL:        getEnvAsDuration("MEMBER_LOCK_TTL", 30*time.Second),
			LockWait:       getEnvAsDuration("MEMBER_LOCK_WAIT", 5*time.Second),
			IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			ReceiptTTL:     getEnvAsDuration("RECEIPT_CACHE_TTL", time.Hour),
			RatePerSecond:  getEnvAsFloat("SETTLE_RATE_PER_SEC", 20),
			RateBurst:      int(getEnvAsInt64("SETTLE_RATE_BURST", 40)),
		},
		OTEL: OTELConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			InstanceID:     getEnv("OTEL_INSTANCE_ID", ""),
			Token:          getEnv("OTEL_TOKEN", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clubdesk-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    env,
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Bucket:    getEnv("S3_BUCKET", "receipts"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			AccessKey: getEnv("S3_ACCESS_KEY", "any"),
			SecretKey: getEnv("S3_SECRET_KEY", "any"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.MongoDB.URI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.MongoDB.Database == "" {
		return fmt.Errorf("MONGODB_DATABASE is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if strings.TrimSpace(c.Settlement.ReceiptPrefix) == "" {
		return fmt.Errorf("RECEIPT_PREFIX must not be empty")
	}
	if c.Settlement.LockTTL <= 0 || c.Settlement.LockWait < 0 {
		return fmt.Errorf("MEMBER_LOCK_TTL must be positive and MEMBER_LOCK_WAIT non-negative")
	}
	if c.Settlement.RatePerSecond <= 0 || c.Settlement.RateBurst <= 0 {
		return fmt.Errorf("SETTLE_RATE_PER_SEC and SETTLE_RATE_BURST must be positive")
	}
	if c.OTEL.Enabled && c.OTEL.Endpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is set")
	}
	return nil
}

// IsDevelopment reports whether the service runs with developer defaults
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings such as "5s" or "1h30m"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
