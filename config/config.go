// Package config provides configuration for astrochat.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Cache backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Session store
	SessionTTL        time.Duration
	SessionMessageCap int

	// Context selection
	ContextTokenBudget  int // 0 disables token budgeting
	ContextMessageLimit int

	// LLM collaborator
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Identity provider
	AuthVerifyURL string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cleanup
	CleanupInterval  time.Duration
	CleanupAfterDays int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:         getEnv("DATABASE_URL", "file:astrochat.db?cache=shared&mode=rwc"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		SessionTTL:          time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		SessionMessageCap:   getEnvInt("SESSION_MESSAGE_CAP", 100),
		ContextTokenBudget:  getEnvInt("CONTEXT_TOKEN_BUDGET", 3000),
		ContextMessageLimit: getEnvInt("CONTEXT_MESSAGE_LIMIT", 10),
		LLMBaseURL:          getEnv("OPENROUTER_URL", "https://openrouter.ai/api"),
		LLMAPIKey:           getEnv("OPENROUTER_API_KEY", ""),
		LLMModel:            getEnv("OPENROUTER_MODEL", "deepseek/deepseek-chat"),
		LLMTimeout:          time.Duration(getEnvInt("LLM_TIMEOUT_MS", 30000)) * time.Millisecond,
		AuthVerifyURL:       getEnv("AUTH_VERIFY_URL", ""),
		RateLimitRequests:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:     time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 3600)) * time.Second,
		CleanupInterval:     time.Duration(getEnvInt("CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		CleanupAfterDays:    getEnvInt("CLEANUP_AFTER_DAYS", 7),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
