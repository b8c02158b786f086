package authd

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("MANIMATE_AUTH_SESSION_KEY", "test-key")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error: %v", err)
	}
	if cfg.Addr != ":8787" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, ":8787")
	}
	if cfg.RPID != "localhost" {
		t.Fatalf("RPID = %q, want %q", cfg.RPID, "localhost")
	}
	if len(cfg.RPOrigins) != 1 || cfg.RPOrigins[0] != "http://localhost:5173" {
		t.Fatalf("RPOrigins = %v, want default origin", cfg.RPOrigins)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("MANIMATE_AUTH_SESSION_KEY", "test-key")
	t.Setenv("MANIMATE_AUTH_ADDR", "127.0.0.1:9000")
	t.Setenv("MANIMATE_AUTH_RP_ID", "auth.example")
	t.Setenv("MANIMATE_AUTH_RP_ORIGINS", "https://app.example,https://admin.example")
	t.Setenv("MANIMATE_AUTH_SESSION_TTL", "30m")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("Addr = %q, want override", cfg.Addr)
	}
	if cfg.RPID != "auth.example" {
		t.Fatalf("RPID = %q, want override", cfg.RPID)
	}
	if len(cfg.RPOrigins) != 2 {
		t.Fatalf("RPOrigins = %v, want two origins", cfg.RPOrigins)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
}

func TestLoadConfigFromEnvRequiresSessionKey(t *testing.T) {
	t.Setenv("MANIMATE_AUTH_SESSION_KEY", "")
	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("LoadConfigFromEnv() accepted an empty session key")
	}
}
