package app

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir)
	}
	if len(cfg.LogSinks) != 1 || cfg.LogSinks[0] != "console" {
		t.Fatalf("expected console sink by default, got %v", cfg.LogSinks)
	}
	if cfg.TopN != 10 {
		t.Fatalf("expected default leaderboard size 10, got %d", cfg.TopN)
	}
	if cfg.MemoryStore {
		t.Fatalf("expected persistent store by default")
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TURBOWHEEL_ADDR", ":9999")
	t.Setenv("TURBOWHEEL_MEMORY_STORE", "true")
	t.Setenv("TURBOWHEEL_LOG_SINKS", "console,json")
	t.Setenv("TURBOWHEEL_LEADERBOARD_SIZE", "25")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Addr != ":9999" {
		t.Fatalf("expected overridden addr, got %q", cfg.Addr)
	}
	if !cfg.MemoryStore {
		t.Fatalf("expected memory store enabled")
	}
	if len(cfg.LogSinks) != 2 || cfg.LogSinks[1] != "json" {
		t.Fatalf("expected two sinks, got %v", cfg.LogSinks)
	}
	if cfg.TopN != 25 {
		t.Fatalf("expected leaderboard size 25, got %d", cfg.TopN)
	}
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	t.Setenv("TURBOWHEEL_LEADERBOARD_SIZE", "not-a-number")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected an error for a malformed integer")
	}
}
