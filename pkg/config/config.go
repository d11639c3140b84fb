package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Wallet
	WalletInitialBalance float64
	WalletConnectDelay   time.Duration

	// Trading
	TradeLiquidityB  float64 // LMSR liquidity parameter
	TradeFeeRate     float64 // fraction of trade amount charged as fee
	TradeSettleDelay time.Duration
	TradeRateLimit   float64 // trade requests per second over HTTP
	TradeRateBurst   int

	// Price stream
	StreamTickInterval time.Duration
	StreamWriteTimeout time.Duration
	StreamSendBuffer   int

	// Synthetic data
	SyntheticSeed     int64
	SyntheticCacheTTL time.Duration

	// Storage
	StorageMode  string // "console", "sqlite" or "postgres"
	SQLitePath   string
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
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Wallet defaults
		WalletInitialBalance: getFloat64OrDefault("WALLET_INITIAL_BALANCE", 1000.0),
		WalletConnectDelay:   getDurationOrDefault("WALLET_CONNECT_DELAY", 500*time.Millisecond),

		// Trading defaults
		TradeLiquidityB:  getFloat64OrDefault("TRADE_LIQUIDITY_B", 100.0),
		TradeFeeRate:     getFloat64OrDefault("TRADE_FEE_RATE", 0.01),
		TradeSettleDelay: getDurationOrDefault("TRADE_SETTLE_DELAY", 1*time.Second),
		TradeRateLimit:   getFloat64OrDefault("TRADE_RATE_LIMIT", 2.0),
		TradeRateBurst:   getIntOrDefault("TRADE_RATE_BURST", 5),

		// Price stream defaults
		StreamTickInterval: getDurationOrDefault("STREAM_TICK_INTERVAL", 5*time.Second),
		StreamWriteTimeout: getDurationOrDefault("STREAM_WRITE_TIMEOUT", 5*time.Second),
		StreamSendBuffer:   getIntOrDefault("STREAM_SEND_BUFFER", 8),

		// Synthetic data defaults
		SyntheticSeed:     int64(getIntOrDefault("SYNTHETIC_SEED", 0)),
		SyntheticCacheTTL: getDurationOrDefault("SYNTHETIC_CACHE_TTL", 30*time.Second),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		SQLitePath:   getEnvOrDefault("SQLITE_PATH", "forecastd.db"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "forecastd"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "forecastd123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "forecastd"),
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

	if c.WalletInitialBalance < 0 {
		return fmt.Errorf("WALLET_INITIAL_BALANCE cannot be negative, got %f", c.WalletInitialBalance)
	}

	if c.TradeLiquidityB <= 0 {
		return fmt.Errorf("TRADE_LIQUIDITY_B must be positive, got %f", c.TradeLiquidityB)
	}

	if c.TradeFeeRate < 0 || c.TradeFeeRate >= 1.0 {
		return fmt.Errorf("TRADE_FEE_RATE must be between 0 and 1.0, got %f", c.TradeFeeRate)
	}

	if c.StorageMode != "console" && c.StorageMode != "sqlite" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console', 'sqlite' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
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
