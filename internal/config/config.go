package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

const (
	defaultEnv               = "development"
	defaultHTTPHost          = "0.0.0.0"
	defaultHTTPPort          = 8080
	defaultRedisAddr         = "localhost:6379"
	defaultRedisDB           = 0
	defaultPriceTTLSeconds   = 60
	defaultRabbitMQExchange  = "ledger.transactions"
	defaultMarketDataBaseURL = "https://query1.finance.yahoo.com"
)

// Config keeps the runtime configuration for the service.
type Config struct {
	Env        string
	HTTP       HTTPConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	MarketData MarketDataConfig
}

// HTTPConfig holds HTTP server related settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr renders the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// PostgresConfig stores database connection parameters.
type PostgresConfig struct {
	DSN string
}

// RedisConfig stores Redis connection parameters. An empty Addr disables the
// price cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig stores broker settings for the transaction event stream.
// An empty URL disables publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// MarketDataConfig stores the quote API endpoint and price cache behavior.
type MarketDataConfig struct {
	BaseURL         string
	PriceTTLSeconds int
}

// Load builds Config from environment variables.
func Load() (*Config, error) {
	host := getString("HTTP_HOST", defaultHTTPHost)
	port, err := getInt("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_PORT: %w", err)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	redisDB, err := getInt("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	priceTTL, err := getInt("PRICE_CACHE_TTL_SECONDS", defaultPriceTTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("parse PRICE_CACHE_TTL_SECONDS: %w", err)
	}

	return &Config{
		Env:  getString("APP_ENV", defaultEnv),
		HTTP: HTTPConfig{Host: host, Port: port},
		Postgres: PostgresConfig{
			DSN: dsn,
		},
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", defaultRedisAddr),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getString("RABBITMQ_EXCHANGE", defaultRabbitMQExchange),
		},
		MarketData: MarketDataConfig{
			BaseURL:         getString("MARKETDATA_BASE_URL", defaultMarketDataBaseURL),
			PriceTTLSeconds: priceTTL,
		},
	}, nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}
