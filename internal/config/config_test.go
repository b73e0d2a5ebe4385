package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ris_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("port = %q, want 8000", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("env = %q, want development", cfg.Env)
	}
	if cfg.TokenDuration() != 480*time.Minute {
		t.Errorf("token ttl = %v", cfg.TokenDuration())
	}
	if cfg.OTPDuration() != 300*time.Second {
		t.Errorf("otp ttl = %v", cfg.OTPDuration())
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestValidateSecretRules(t *testing.T) {
	base := Config{Env: "production", UploadMaxMB: 50}

	cfg := base
	if err := cfg.Validate(); err == nil {
		t.Error("production without JWT_SECRET should fail")
	}

	cfg = base
	cfg.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("short secret should fail")
	}

	cfg = base
	cfg.JWTSecret = strings.Repeat("a", 32)
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid production config rejected: %v", err)
	}

	dev := Config{Env: "development", UploadMaxMB: 50}
	if err := dev.Validate(); err != nil {
		t.Errorf("development without secret rejected: %v", err)
	}
}

func TestValidateUploadLimit(t *testing.T) {
	cfg := Config{Env: "development", UploadMaxMB: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("zero upload limit should fail")
	}
}
