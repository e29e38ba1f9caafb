package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the analysis engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Cache     CacheConfig     `yaml:"cache"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the tool listener and metrics endpoint.
type ServerConfig struct {
	Transport       string        `yaml:"transport"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// TelemetryConfig configures access to the telemetry platform APIs.
type TelemetryConfig struct {
	BaseURL       string        `yaml:"baseURL"`
	QueryPath     string        `yaml:"queryPath"`
	IncidentsPath string        `yaml:"incidentsPath"`
	APIKey        string        `yaml:"apiKey"`
	Timeout       time.Duration `yaml:"timeout"`
}

// CacheConfig controls Valkey-backed caching of analysis results.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Addr          string        `yaml:"addr"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	MaxRetries    int           `yaml:"maxRetries"`
	TLS           bool          `yaml:"tls"`
	CollectionTTL time.Duration `yaml:"collectionTTL"`
	AnalysisTTL   time.Duration `yaml:"analysisTTL"`
	PatternTTL    time.Duration `yaml:"patternTTL"`
	SimilarTTL    time.Duration `yaml:"similarTTL"`
}

// AnalysisConfig tunes the collection window geometry.
type AnalysisConfig struct {
	WindowBefore     time.Duration `yaml:"windowBefore"`
	WindowAfter      time.Duration `yaml:"windowAfter"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FAULTLINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Transport:       "stdio",
			HTTPAddress:     ":8085",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			QueryPath:     "/api/v1/query",
			IncidentsPath: "/api/v1/incidents",
			Timeout:       10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:       false,
			DialTimeout:   2 * time.Second,
			ReadTimeout:   500 * time.Millisecond,
			WriteTimeout:  500 * time.Millisecond,
			MaxRetries:    2,
			CollectionTTL: 10 * time.Minute,
			AnalysisTTL:   30 * time.Minute,
			PatternTTL:    15 * time.Minute,
			SimilarTTL:    time.Hour,
		},
		Analysis: AnalysisConfig{
			WindowBefore:     30 * time.Minute,
			WindowAfter:      15 * time.Minute,
			SnapshotInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FAULTLINE_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := os.Getenv("FAULTLINE_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("FAULTLINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FAULTLINE_TELEMETRY_BASE_URL"); v != "" {
		cfg.Telemetry.BaseURL = v
	}
	if v := os.Getenv("FAULTLINE_TELEMETRY_QUERY_PATH"); v != "" {
		cfg.Telemetry.QueryPath = v
	}
	if v := os.Getenv("FAULTLINE_TELEMETRY_INCIDENTS_PATH"); v != "" {
		cfg.Telemetry.IncidentsPath = v
	}
	if v := os.Getenv("FAULTLINE_TELEMETRY_API_KEY"); v != "" {
		cfg.Telemetry.APIKey = v
	}
	if v := os.Getenv("FAULTLINE_TELEMETRY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Telemetry.Timeout = d
		}
	}
	if v := os.Getenv("FAULTLINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FAULTLINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("FAULTLINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("FAULTLINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("FAULTLINE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("FAULTLINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("FAULTLINE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("FAULTLINE_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("FAULTLINE_CACHE_COLLECTION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.CollectionTTL = d
		}
	}
	if v := os.Getenv("FAULTLINE_CACHE_ANALYSIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.AnalysisTTL = d
		}
	}
	if v := os.Getenv("FAULTLINE_CACHE_PATTERN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.PatternTTL = d
		}
	}
	if v := os.Getenv("FAULTLINE_CACHE_SIMILAR_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SimilarTTL = d
		}
	}
	if v := os.Getenv("FAULTLINE_WINDOW_BEFORE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analysis.WindowBefore = d
		}
	}
	if v := os.Getenv("FAULTLINE_WINDOW_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analysis.WindowAfter = d
		}
	}
}
