package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_KEY", "")
	t.Setenv("ACCESS_TTL", "")
	t.Setenv("RECONCILE_EVERY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr default, got %q", cfg.Addr)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl default, got %v", cfg.AccessTTL)
	}
	if cfg.ReconcileEvery != "@every 1m" {
		t.Fatalf("reconcile default, got %q", cfg.ReconcileEvery)
	}
	if cfg.JWTKey != "" {
		t.Fatalf("jwt key must stay empty unless set")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/calswap")
	t.Setenv("JWT_KEY", "k")
	t.Setenv("ACCESS_TTL", "1h")
	t.Setenv("RECONCILE_EVERY", "@every 30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.JWTKey != "k" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://u:p@db:5432/calswap" {
		t.Fatalf("database url override, got %q", cfg.DatabaseURL)
	}
	if cfg.AccessTTL != time.Hour {
		t.Fatalf("access ttl override, got %v", cfg.AccessTTL)
	}
	if cfg.ReconcileEvery != "@every 30s" {
		t.Fatalf("reconcile override, got %q", cfg.ReconcileEvery)
	}
}

func TestLoad_BadTTL(t *testing.T) {
	t.Setenv("ACCESS_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("want error on unparseable ACCESS_TTL")
	}
}
