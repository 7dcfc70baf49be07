package common

import (
	"os"
	"strconv"
	"time"

	"github.com/StarHydra/docstruct/constants"
)

// Config holds all application configuration
type Config struct {
	Pipeline PipelineConfig
	LLM      LLMConfig
}

// PipelineConfig holds chunking and dispatch configuration
type PipelineConfig struct {
	TokenBudget  int
	ChunkOverlap int
	Concurrency  int
}

// LLMConfig holds remote-model configuration
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	MaxElapsed  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			TokenBudget:  getEnvAsInt("TOKEN_BUDGET", constants.DefaultTokenBudget),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 0),
			Concurrency:  getEnvAsInt("CONCURRENCY", constants.DefaultConcurrency),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			APIKey:      getEnv("GROQ_API_KEY", ""),
			Temperature: getEnvAsFloat32("GROQ_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 3000),
			Timeout:     getEnvAsDuration("GROQ_TIMEOUT", 45*time.Second),
			MaxAttempts: getEnvAsInt("MAX_RETRIES", constants.DefaultMaxAttempts),
			BackoffBase: getEnvAsDuration("BACKOFF_BASE", 1*time.Second),
			MaxElapsed:  getEnvAsDuration("RETRY_MAX_ELAPSED", 2*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GROQ_API_KEY is required", ErrInvalidInput)
	}
	if c.Pipeline.TokenBudget <= 0 {
		return NewAppError("CONFIG_ERROR", "TOKEN_BUDGET must be positive", ErrInvalidInput)
	}
	if c.Pipeline.TokenBudget > constants.MaxTokenBudget {
		return NewAppError("CONFIG_ERROR", "TOKEN_BUDGET exceeds the hard ceiling", ErrInvalidInput)
	}
	if c.Pipeline.Concurrency < 1 {
		return NewAppError("CONFIG_ERROR", "CONCURRENCY must be at least 1", ErrInvalidInput)
	}
	return nil
}
