package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPath != "./data/learn.db" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Janitor.LearnerTTL != 90*24*time.Hour {
		t.Errorf("LearnerTTL = %v", cfg.Janitor.LearnerTTL)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode without FRONTEND_URL")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CONTENT_PATH", "/srv/learn.yaml")
	t.Setenv("LEARNER_TTL", "48h")
	t.Setenv("METRICS_ENABLED", "off")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FRONTEND_URL", "https://learn.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.ContentPath != "/srv/learn.yaml" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Janitor.LearnerTTL != 48*time.Hour {
		t.Errorf("LearnerTTL = %v", cfg.Janitor.LearnerTTL)
	}
	if cfg.MetricsEnabled {
		t.Error("expected metrics disabled")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_RETRIES", "many")
	t.Setenv("JANITOR_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retry.DatabaseMaxRetries != 3 || cfg.Janitor.Interval != time.Hour {
		t.Errorf("expected fallbacks, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("DB_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty DB_PATH")
	}
}
