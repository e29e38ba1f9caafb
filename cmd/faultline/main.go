package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faultlinestack/faultline/internal/cache"
	"github.com/faultlinestack/faultline/internal/collector"
	"github.com/faultlinestack/faultline/internal/config"
	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/mcp"
	"github.com/faultlinestack/faultline/internal/metrics"
	"github.com/faultlinestack/faultline/internal/patterns"
	"github.com/faultlinestack/faultline/internal/telemetry"
	"github.com/faultlinestack/faultline/internal/utils"
)

var version = "dev"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting faultline", slog.String("transport", cfg.Server.Transport))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NewMemoryProvider()
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, using in-memory cache", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	client := telemetry.NewHTTPClient(
		cfg.Telemetry.BaseURL,
		cfg.Telemetry.QueryPath,
		cfg.Telemetry.IncidentsPath,
		cfg.Telemetry.APIKey,
		cfg.Telemetry.Timeout,
		logger,
	)

	dataCollector := collector.New(logger, client, cacheProvider, collector.Options{
		WindowBefore:     cfg.Analysis.WindowBefore,
		WindowAfter:      cfg.Analysis.WindowAfter,
		SnapshotInterval: cfg.Analysis.SnapshotInterval,
		CollectionTTL:    cfg.Cache.CollectionTTL,
	})

	registry := patterns.NewRegistry()
	analysisEngine := engine.New(logger, client, cacheProvider, dataCollector, registry, engine.TTLs{
		Analysis: cfg.Cache.AnalysisTTL,
		Patterns: cfg.Cache.PatternTTL,
		Similar:  cfg.Cache.SimilarTTL,
	})

	toolServer := mcp.NewServer(analysisEngine, logger, version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := serveMetrics(cfg.Server.MetricsAddress, logger)

	switch cfg.Server.Transport {
	case "http":
		if err := toolServer.ServeHTTP(ctx, cfg.Server.HTTPAddress, "/mcp"); err != nil {
			logger.Error("http transport failed", slog.Any("error", err))
			os.Exit(1)
		}
	default:
		if err := toolServer.ServeStdio(); err != nil {
			logger.Error("stdio transport failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics listener shutdown failed", slog.Any("error", err))
		}
	}
	logger.Info("faultline stopped")
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listener started", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", slog.Any("error", err))
		}
	}()
	return srv
}
