package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"MAX_TOOLS", "MAX_RETRIES", "TIMEOUT_SECONDS", "COLLECTION_NAME"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.MaxTools != 5 {
		t.Errorf("MaxTools = %d, want 5", cfg.MaxTools)
	}
	if cfg.MaxAttempts() != 2 {
		t.Errorf("MaxAttempts() = %d, want 2", cfg.MaxAttempts())
	}
	if cfg.CallTimeout() != 30*time.Second {
		t.Errorf("CallTimeout() = %v, want 30s", cfg.CallTimeout())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_TOOLS", "3")
	t.Setenv("MAX_RETRIES", "2")
	t.Setenv("TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.MaxTools != 3 {
		t.Errorf("MaxTools = %d, want 3", cfg.MaxTools)
	}
	if cfg.MaxAttempts() != 3 {
		t.Errorf("MaxAttempts() = %d, want 3", cfg.MaxAttempts())
	}
	if cfg.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d, want default 30 on parse failure", cfg.TimeoutSeconds)
	}
}

func TestValidateCredentials(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g")
	t.Setenv("FIRECRAWL_API_KEY", "")

	if err := Load().ValidateCredentials(); err == nil {
		t.Error("ValidateCredentials() = nil, want error for missing FIRECRAWL_API_KEY")
	}

	t.Setenv("FIRECRAWL_API_KEY", "f")
	if err := Load().ValidateCredentials(); err != nil {
		t.Errorf("ValidateCredentials() = %v, want nil", err)
	}
}
