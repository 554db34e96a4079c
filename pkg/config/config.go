package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, read from the environment at process
// start.
type Config struct {
	GoogleApiKey    string
	FirecrawlApiKey string
	DatabaseURL     string

	ReasoningModel string
	FastModel      string
	EmbeddingModel string

	Port           string
	CollectionName string

	// Workflow knobs.
	MaxTools       int
	MaxRetries     int
	TimeoutSeconds int

	// Report index chunking.
	ChunkSize    int
	ChunkOverlap int
}

func Load() *Config {
	return &Config{
		GoogleApiKey:    getEnv("GOOGLE_API_KEY", ""),
		FirecrawlApiKey: getEnv("FIRECRAWL_API_KEY", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		ReasoningModel:  getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:       getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		Port:            getEnv("PORT", "8081"),
		CollectionName:  getEnv("COLLECTION_NAME", "toolscout_reports"),
		MaxTools:        getEnvAsInt("MAX_TOOLS", 5),
		MaxRetries:      getEnvAsInt("MAX_RETRIES", 1),
		TimeoutSeconds:  getEnvAsInt("TIMEOUT_SECONDS", 30),
		ChunkSize:       getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
	}
}

// ValidateCredentials fails fast when a provider key is missing, before any
// workflow starts.
func (c *Config) ValidateCredentials() error {
	if c.GoogleApiKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is not set")
	}
	if c.FirecrawlApiKey == "" {
		return fmt.Errorf("FIRECRAWL_API_KEY is not set")
	}
	return nil
}

// CallTimeout returns the per-provider-call timeout.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaxAttempts converts the retry count into a total attempt budget.
func (c *Config) MaxAttempts() int {
	return c.MaxRetries + 1
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
