package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9090
  host: "127.0.0.1"

pacing:
  baseDelay: "250ms"
  multiplier: 2.0

cache:
  enabled: false
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load config
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	if cfg.Pacing.BaseDelay != 250*time.Millisecond {
		t.Errorf("Expected base delay 250ms, got %v", cfg.Pacing.BaseDelay)
	}

	if cfg.Pacing.Multiplier != 2.0 {
		t.Errorf("Expected multiplier 2.0, got %f", cfg.Pacing.Multiplier)
	}

	if cfg.Cache.Enabled {
		t.Error("Expected cache to be disabled")
	}

	// Verify defaults fill the gaps
	if cfg.Pacing.MaxDelay != 5*time.Second {
		t.Errorf("Expected default max delay 5s, got %v", cfg.Pacing.MaxDelay)
	}

	if cfg.RateLimit.RPS != 10 {
		t.Errorf("Expected default rps 10, got %d", cfg.RateLimit.RPS)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}
