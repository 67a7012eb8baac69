package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGOURI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMONGO_SECRET_KEY", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("NIGHTLY_RATE", "")
	t.Setenv("PAYMONGO_TIMEOUT", "")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.NightlyRate != 139950 {
		t.Fatalf("NightlyRate = %d", cfg.NightlyRate)
	}
	if cfg.Gateway.Timeout != 15*time.Second {
		t.Fatalf("Timeout = %s", cfg.Gateway.Timeout)
	}
	if cfg.Gateway.SecretKey != "" {
		t.Fatalf("secret should be empty")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Gateway.Currency != "PHP" || cfg.Gateway.PaymentMethod != "gcash" {
		t.Fatalf("gateway defaults = %+v", cfg.Gateway)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://homigo.app, https://www.homigo.app ,")
	t.Setenv("PUBLIC_BASE_URL", "https://homigo.app/")
	t.Setenv("PAYMONGO_TIMEOUT", "10s")
	t.Setenv("NIGHTLY_RATE", "2000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://www.homigo.app" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.PublicBaseURL != "https://homigo.app" {
		t.Fatalf("PublicBaseURL = %s", cfg.PublicBaseURL)
	}
	if cfg.Gateway.Timeout != 10*time.Second || cfg.NightlyRate != 200000 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setRequired(t)
	t.Setenv("NIGHTLY_RATE", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative rate")
	}

	t.Setenv("NIGHTLY_RATE", "")
	t.Setenv("PUBLIC_BASE_URL", "/relative")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for relative base url")
	}

	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("MONGOURI", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing MONGOURI")
	}
}
