package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the minimum environment a successful Load needs.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 30*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 720h", cfg.RefreshTTL)
	}
	if cfg.Persistence != BackendMemory {
		t.Errorf("Persistence = %q, want memory", cfg.Persistence)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q, want derived from port", cfg.ServerURL)
	}
}

func TestLoadRejectsMissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without JWT_SECRET")
	}
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with a short JWT_SECRET")
	}
}

func TestLoadDevelopmentFallsBackToDevSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTSecret == "" {
		t.Fatal("development fallback secret not applied")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("PERSISTENCE_BACKEND", "postgres")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "PERSISTENCE_BACKEND") {
		t.Fatalf("err = %v, want PERSISTENCE_BACKEND validation failure", err)
	}
}

func TestLoadCollectsEveryParseError(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("ACCESS_TTL_MINUTES", "abc")

	err := func() error {
		_, err := Load()
		return err
	}()
	if err == nil {
		t.Fatal("Load succeeded with malformed integers")
	}
	msg := err.Error()
	for _, key := range []string{"PORT", "ACCESS_TTL_MINUTES"} {
		if !strings.Contains(msg, key) {
			t.Errorf("error %q does not mention %s", msg, key)
		}
	}
}

func TestLoadRejectsHalfConfiguredBootstrap(t *testing.T) {
	setRequired(t)
	t.Setenv("BOOTSTRAP_EMAIL", "owner@example.com")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "BOOTSTRAP_EMAIL") {
		t.Fatalf("err = %v, want bootstrap pairing failure", err)
	}
}
