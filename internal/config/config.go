package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CacheBackend selects the process-wide permission cache implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
	CacheNone   CacheBackend = "none"
)

// Config holds the engine configuration
type Config struct {
	// Database connection string (DSN). postgres:// URLs select PostgreSQL,
	// anything else is treated as a SQLite path.
	DatabaseURL string

	// Process-wide permission cache backend
	CacheBackend CacheBackend

	// Redis address, required when CacheBackend is "redis"
	RedisAddr string

	// Maximum entries held by the in-memory cache backend
	CacheSize int

	// Console log threshold (debug..fatal)
	ConsoleLogLevel string

	// Database log threshold (debug..fatal)
	DBLogLevel string

	// Debug lowers the console threshold to debug regardless of ConsoleLogLevel
	Debug bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getEnv("ROLEMANAGER_DATABASE_URL", "rolemanager.db"),
		CacheBackend:    CacheBackend(strings.ToLower(getEnv("ROLEMANAGER_CACHE", string(CacheMemory)))),
		RedisAddr:       getEnv("ROLEMANAGER_REDIS_ADDR", "localhost:6379"),
		ConsoleLogLevel: getEnv("ROLEMANAGER_LOG_LEVEL", "warning"),
		DBLogLevel:      getEnv("ROLEMANAGER_DB_LOG_LEVEL", "error"),
	}

	if sizeStr := os.Getenv("ROLEMANAGER_CACHE_SIZE"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid ROLEMANAGER_CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = size
	}

	if debugStr := os.Getenv("ROLEMANAGER_DEBUG"); debugStr != "" {
		debug, err := strconv.ParseBool(debugStr)
		if err != nil {
			return nil, fmt.Errorf("invalid ROLEMANAGER_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}

	switch cfg.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return nil, fmt.Errorf("invalid ROLEMANAGER_CACHE: %q (expected memory, redis or none)", cfg.CacheBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
