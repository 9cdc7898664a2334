package config_test

import (
	"testing"
	"time"

	"github.com/timemachine/chatcore/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"BACKEND_URL", "STORE_PATH", "POLL_INTERVAL_MS", "POLL_MAX_ATTEMPTS", "POLL_MAX_EMPTY"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected default backend URL: %s", cfg.Backend.BaseURL)
	}
	if cfg.Poll.Interval != time.Second || cfg.Poll.MaxAttempts != 15 || cfg.Poll.MaxEmpty != 10 {
		t.Fatalf("unexpected default poll config: %+v", cfg.Poll)
	}
	if cfg.Store.Path == "" {
		t.Fatal("expected a default store path")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://backend.example.com")
	t.Setenv("STORE_PATH", "/tmp/custom.db")
	t.Setenv("POLL_INTERVAL_MS", "250")
	t.Setenv("POLL_MAX_ATTEMPTS", "7")
	t.Setenv("POLL_MAX_EMPTY", "4")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Backend.BaseURL != "https://backend.example.com" {
		t.Fatalf("unexpected backend URL: %s", cfg.Backend.BaseURL)
	}
	if cfg.Store.Path != "/tmp/custom.db" {
		t.Fatalf("unexpected store path: %s", cfg.Store.Path)
	}
	if cfg.Poll.Interval != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxAttempts != 7 || cfg.Poll.MaxEmpty != 4 {
		t.Fatalf("unexpected poll caps: %+v", cfg.Poll)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("BACKEND_URL", "localhost:5000")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for backend URL without scheme")
	}
	t.Setenv("BACKEND_URL", "")

	t.Setenv("POLL_INTERVAL_MS", "zero")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for non-numeric poll interval")
	}
	t.Setenv("POLL_INTERVAL_MS", "-5")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for negative poll interval")
	}
}
