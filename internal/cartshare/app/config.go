package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	JWTSecret string // Required: shared HMAC secret for verifying access tokens

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./cartshare.db)
	AMQPURL             string        // Optional: broker URL; empty disables the event bridge
	AMQPExchange        string        // Optional: exchange for record events (default: cartshare.events)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	// Local development convenience; in deployment the environment is real.
	_ = godotenv.Load()

	return Config{
		JWTSecret:           os.Getenv("CARTSHARE_JWT_SECRET"),
		DatabaseFile:        getEnvOrDefault("CARTSHARE_DATABASE_FILE", "cartshare.db"),
		AMQPURL:             os.Getenv("CARTSHARE_AMQP_URL"),
		AMQPExchange:        getEnvOrDefault("CARTSHARE_AMQP_EXCHANGE", "cartshare.events"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
