package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration loaded from environment variables
type Config struct {
	Port        string
	Environment string

	JWTSecret []byte

	LogLevel string
	LogFile  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	RateLimitMax    int
	RateLimitWindow time.Duration

	TracingEnabled      bool
	TracingOTLPEndpoint string
	TracingSamplingRate float64
}

// Load reads the server configuration from the environment. JWT_SECRET
// is the only hard requirement.
func Load() (*Config, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8787"),
		Environment: envOrDefault("ENVIRONMENT", "development"),

		JWTSecret: []byte(jwtSecret),

		LogLevel: envOrDefault("LOG_LEVEL", "info"),
		LogFile:  envOrDefault("LOG_FILE", "server.log"),

		RedisHost:     envOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     envOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RateLimitMax:    envInt("RATE_LIMIT_MAX", 300),
		RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		TracingEnabled:      envBool("OTEL_ENABLED", false),
		TracingOTLPEndpoint: envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		TracingSamplingRate: envFloat("OTEL_SAMPLING_RATE", 1.0),
	}

	return cfg, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
