// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage modes.
const (
	StorageMemory   = "memory"
	StorageConsole  = "console"
	StoragePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Marketplace API
	MarketplaceAPIURL string
	MarketplaceAPIKey string
	MarketplaceWSURL  string
	APIMaxRetries     int
	APIRetryDelay     time.Duration
	APITimeout        time.Duration
	FeeCacheTTL       time.Duration

	// Chain
	Network             string
	RPCURL              string
	PrivateKey          string
	ConfirmPollInterval time.Duration
	WalletPollInterval  time.Duration

	// Order stream
	StreamCollections          []string
	StreamDialTimeout          time.Duration
	StreamPingInterval         time.Duration
	StreamReconnectInitDelay   time.Duration
	StreamReconnectMaxDelay    time.Duration
	StreamReconnectBackoffMult float64
	StreamBufferSize           int

	// Storage
	StorageMode  string
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		MarketplaceAPIURL: getEnvOrDefault("MARKETPLACE_API_URL", "https://api.opensea.io"),
		MarketplaceAPIKey: os.Getenv("MARKETPLACE_API_KEY"),
		MarketplaceWSURL:  os.Getenv("MARKETPLACE_WS_URL"),
		APIMaxRetries:     getIntOrDefault("API_MAX_RETRIES", 3),
		APIRetryDelay:     getDurationOrDefault("API_RETRY_DELAY", 3*time.Second),
		APITimeout:        getDurationOrDefault("API_TIMEOUT", 30*time.Second),
		FeeCacheTTL:       getDurationOrDefault("FEE_CACHE_TTL", 10*time.Minute),

		Network:             getEnvOrDefault("NETWORK", "main"),
		RPCURL:              os.Getenv("RPC_URL"),
		PrivateKey:          os.Getenv("PRIVATE_KEY"),
		ConfirmPollInterval: getDurationOrDefault("CONFIRM_POLL_INTERVAL", 3*time.Second),
		WalletPollInterval:  getDurationOrDefault("WALLET_POLL_INTERVAL", time.Minute),

		StreamCollections:          getListOrDefault("STREAM_COLLECTIONS", nil),
		StreamDialTimeout:          getDurationOrDefault("STREAM_DIAL_TIMEOUT", 10*time.Second),
		StreamPingInterval:         getDurationOrDefault("STREAM_PING_INTERVAL", 20*time.Second),
		StreamReconnectInitDelay:   getDurationOrDefault("STREAM_RECONNECT_INITIAL_DELAY", time.Second),
		StreamReconnectMaxDelay:    getDurationOrDefault("STREAM_RECONNECT_MAX_DELAY", 30*time.Second),
		StreamReconnectBackoffMult: getFloat64OrDefault("STREAM_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		StreamBufferSize:           getIntOrDefault("STREAM_BUFFER_SIZE", 1000),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", StorageMemory),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "nftorders"),
		PostgresPass: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "nft_orders"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.MarketplaceAPIURL == "" {
		return fmt.Errorf("MARKETPLACE_API_URL cannot be empty")
	}

	if c.Network != "main" && c.Network != "rinkeby" {
		return fmt.Errorf("NETWORK must be 'main' or 'rinkeby', got %q", c.Network)
	}

	if c.APIMaxRetries < 0 {
		return fmt.Errorf("API_MAX_RETRIES must not be negative, got %d", c.APIMaxRetries)
	}

	if c.APIRetryDelay < 0 {
		return fmt.Errorf("API_RETRY_DELAY must not be negative, got %s", c.APIRetryDelay)
	}

	switch c.StorageMode {
	case StorageMemory, StorageConsole, StoragePostgres:
	default:
		return fmt.Errorf("STORAGE_MODE must be 'memory', 'console' or 'postgres', got %q", c.StorageMode)
	}

	if len(c.StreamCollections) > 0 && c.MarketplaceWSURL == "" {
		return fmt.Errorf("MARKETPLACE_WS_URL is required when STREAM_COLLECTIONS is set")
	}

	if c.PrivateKey != "" && len(strings.TrimPrefix(c.PrivateKey, "0x")) != 64 {
		return fmt.Errorf("PRIVATE_KEY must be 32 hex-encoded bytes")
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getListOrDefault splits a comma-separated value, dropping blanks.
func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
