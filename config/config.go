// Package config provides configuration for the CSV chat service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Upload limits
	MaxUploadBytes int

	// Session lifecycle
	SessionTTL    time.Duration
	SweepInterval time.Duration

	// Query orchestration
	TurnLimit  int
	RunTimeout time.Duration

	// LLM settings
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:    getEnv("DATABASE_URL", "file:csvchat.db?cache=shared&mode=rwc"),
		MaxUploadBytes: getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024),
		SessionTTL:     time.Duration(getEnvInt("SESSION_TTL_SECONDS", 1800)) * time.Second,
		SweepInterval:  time.Duration(getEnvInt("SESSION_SWEEP_MS", 60000)) * time.Millisecond,
		TurnLimit:      getEnvInt("TURN_LIMIT", 5),
		RunTimeout:     time.Duration(getEnvInt("RUN_TIMEOUT_MS", 120000)) * time.Millisecond,
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
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
