package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Session.AccessCode != nil || cfg.Service.URL != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigDecodesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[session]
access-code = "DRILL"
ttl = "30m"

[simulator]
scoring = "random"
seed = 7

[service]
url = "http://localhost:8080/"
timeout = "5s"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Session.AccessCode == nil || *cfg.Session.AccessCode != "DRILL" {
		t.Fatalf("unexpected access code: %+v", cfg.Session.AccessCode)
	}
	if cfg.Session.TTL == nil || cfg.Session.TTL.Duration != 30*time.Minute {
		t.Fatalf("unexpected ttl: %+v", cfg.Session.TTL)
	}
	if cfg.Simulator.Scoring == nil || *cfg.Simulator.Scoring != "random" {
		t.Fatalf("unexpected scoring: %+v", cfg.Simulator.Scoring)
	}
	if cfg.Simulator.Seed == nil || *cfg.Simulator.Seed != 7 {
		t.Fatalf("unexpected seed: %+v", cfg.Simulator.Seed)
	}
	if cfg.Service.Timeout == nil || cfg.Service.Timeout.Duration != 5*time.Second {
		t.Fatalf("unexpected timeout: %+v", cfg.Service.Timeout)
	}
	if cfg.Server.Addr != nil {
		t.Fatalf("expected unset server addr")
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[session]\nttl = \"two hours\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
