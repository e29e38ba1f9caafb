package utils

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// NewLogger returns a slog.Logger configured for the desired verbosity and format.
func NewLogger(level string, json bool) *slog.Logger {
	handlerLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		handlerLevel = slog.LevelDebug
	case "warn":
		handlerLevel = slog.LevelWarn
	case "error":
		handlerLevel = slog.LevelError
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel})
	}

	return slog.New(handler)
}

// LogIncidentAnalysis emits the structured summary record for a completed analysis.
func LogIncidentAnalysis(logger *slog.Logger, incidentID string, confidence float64, patternCount, anomalyCount int) {
	if logger == nil {
		return
	}
	logger.Info("incident analysis completed",
		slog.String("incident_id", incidentID),
		slog.Float64("confidence", confidence),
		slog.Int("patterns", patternCount),
		slog.Int("anomalies", anomalyCount),
	)
}

// LogQueryExecution records a telemetry query with its result size and latency.
func LogQueryExecution(logger *slog.Logger, query string, resultCount int, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("query executed",
		slog.String("query", query),
		slog.Int("results", resultCount),
		slog.Duration("duration", duration),
	)
}
