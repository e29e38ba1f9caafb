package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Transport != "stdio" {
		t.Fatalf("expected stdio transport default, got %s", cfg.Server.Transport)
	}
	if cfg.Analysis.WindowBefore != 30*time.Minute || cfg.Analysis.WindowAfter != 15*time.Minute {
		t.Fatalf("unexpected window defaults: %s / %s", cfg.Analysis.WindowBefore, cfg.Analysis.WindowAfter)
	}
	if cfg.Cache.CollectionTTL != 10*time.Minute || cfg.Cache.AnalysisTTL != 30*time.Minute {
		t.Fatalf("unexpected TTL defaults: %s / %s", cfg.Cache.CollectionTTL, cfg.Cache.AnalysisTTL)
	}
	if cfg.Cache.Enabled {
		t.Fatalf("cache should be disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  transport: http
  httpAddress: ":9090"
telemetry:
  baseURL: "https://telemetry.example.com"
  apiKey: "secret"
cache:
  enabled: true
  addr: "localhost:6379"
logging:
  level: debug
  json: true
`)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Transport != "http" || cfg.Server.HTTPAddress != ":9090" {
		t.Fatalf("server config not applied: %+v", cfg.Server)
	}
	if cfg.Telemetry.BaseURL != "https://telemetry.example.com" || cfg.Telemetry.APIKey != "secret" {
		t.Fatalf("telemetry config not applied: %+v", cfg.Telemetry)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "localhost:6379" {
		t.Fatalf("cache config not applied: %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Fatalf("logging config not applied: %+v", cfg.Logging)
	}
	// untouched defaults survive a partial file
	if cfg.Telemetry.QueryPath != "/api/v1/query" {
		t.Fatalf("default query path lost: %s", cfg.Telemetry.QueryPath)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FAULTLINE_TRANSPORT", "http")
	t.Setenv("FAULTLINE_TELEMETRY_BASE_URL", "https://env.example.com")
	t.Setenv("FAULTLINE_CACHE_ENABLED", "true")
	t.Setenv("FAULTLINE_CACHE_ADDR", "valkey:6379")
	t.Setenv("FAULTLINE_CACHE_ANALYSIS_TTL", "45m")
	t.Setenv("FAULTLINE_WINDOW_BEFORE", "1h")
	t.Setenv("FAULTLINE_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Transport != "http" {
		t.Fatalf("transport override not applied: %s", cfg.Server.Transport)
	}
	if cfg.Telemetry.BaseURL != "https://env.example.com" {
		t.Fatalf("base url override not applied: %s", cfg.Telemetry.BaseURL)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "valkey:6379" {
		t.Fatalf("cache overrides not applied: %+v", cfg.Cache)
	}
	if cfg.Cache.AnalysisTTL != 45*time.Minute {
		t.Fatalf("ttl override not applied: %s", cfg.Cache.AnalysisTTL)
	}
	if cfg.Analysis.WindowBefore != time.Hour {
		t.Fatalf("window override not applied: %s", cfg.Analysis.WindowBefore)
	}
	if !cfg.Logging.JSON {
		t.Fatalf("log format override not applied")
	}
}
