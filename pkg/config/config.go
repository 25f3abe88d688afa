package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Environment               string
	ServerPort                int
	LogLevel                  string
	DBHost                    string
	DBPort                    int
	DBUser                    string
	DBPassword                string
	DBName                    string
	DBSSLMode                 string
	RedisURL                  string
	APIKeyCacheTTLSeconds     int
	RevocationIntervalMinutes int
	MaxBodyBytes              int64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("APIKEY_CACHE_TTL_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid APIKEY_CACHE_TTL_SECONDS: %w", err)
	}

	revocationInterval, err := strconv.Atoi(getEnv("REVOCATION_INTERVAL_MINUTES", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid REVOCATION_INTERVAL_MINUTES: %w", err)
	}

	maxBody, err := strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BODY_BYTES: %w", err)
	}

	return &Config{
		Environment:               getEnv("ENVIRONMENT", "development"),
		ServerPort:                port,
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		DBHost:                    getEnv("DB_HOST", "localhost"),
		DBPort:                    dbPort,
		DBUser:                    getEnv("DB_USER", "userhub"),
		DBPassword:                getEnv("DB_PASSWORD", "userhub"),
		DBName:                    getEnv("DB_NAME", "userhub"),
		DBSSLMode:                 getEnv("DB_SSLMODE", "disable"),
		RedisURL:                  getEnv("REDIS_URL", ""), // empty disables the remote key cache
		APIKeyCacheTTLSeconds:     cacheTTL,
		RevocationIntervalMinutes: revocationInterval,
		MaxBodyBytes:              maxBody,
	}, nil
}

// DSN renders the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
