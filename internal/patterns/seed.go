package patterns

import (
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

// seedPatterns is the fixed starter signature set covering the five fault
// categories. Thresholds are first-pass operational heuristics; the learning
// feedback path adjusts confidence and frequency over time.
func seedPatterns() []models.FaultPattern {
	return []models.FaultPattern{
		{
			ID:         "gradual-response-degradation",
			Name:       "Gradual response time degradation",
			Category:   models.CategoryPerformanceDegradation,
			Confidence: 0.5,
			Indicators: []models.PatternIndicator{
				{Metric: models.MetricResponseTime, Comparison: models.CompareAbove, Threshold: 500, Window: 15 * time.Minute, Weight: 0.4},
				{Metric: models.MetricApdex, Comparison: models.CompareBelow, Threshold: 0.7, Window: 15 * time.Minute, Weight: 0.3},
				{Metric: models.MetricThroughput, Comparison: models.CompareDrop, Threshold: 100, Window: 10 * time.Minute, Weight: 0.3},
			},
		},
		{
			ID:         "error-rate-spike",
			Name:       "Sudden error rate spike",
			Category:   models.CategoryErrorSpike,
			Confidence: 0.5,
			Indicators: []models.PatternIndicator{
				{Metric: models.MetricErrorRate, Comparison: models.CompareSpike, Threshold: 5, Window: 5 * time.Minute, Weight: 0.5},
				{Metric: models.MetricResponseTime, Comparison: models.CompareAbove, Threshold: 300, Window: 10 * time.Minute, Weight: 0.2},
				{Metric: models.MetricApdex, Comparison: models.CompareBelow, Threshold: 0.8, Window: 10 * time.Minute, Weight: 0.3},
			},
		},
		{
			ID:         "resource-exhaustion",
			Name:       "Host resource exhaustion",
			Category:   models.CategoryResourceExhaustion,
			Confidence: 0.5,
			Indicators: []models.PatternIndicator{
				{Metric: models.MetricCPU, Comparison: models.CompareAbove, Threshold: 85, Window: 10 * time.Minute, Weight: 0.4},
				{Metric: models.MetricMemory, Comparison: models.CompareAbove, Threshold: 90, Window: 10 * time.Minute, Weight: 0.4},
				{Metric: models.MetricResponseTime, Comparison: models.CompareAbove, Threshold: 1000, Window: 10 * time.Minute, Weight: 0.2},
			},
		},
		{
			ID:         "cascade-failure",
			Name:       "Cascading downstream failure",
			Category:   models.CategoryCascadeFailure,
			Confidence: 0.5,
			Indicators: []models.PatternIndicator{
				{Metric: models.MetricErrorRate, Comparison: models.CompareAbove, Threshold: 10, Window: 10 * time.Minute, Weight: 0.35},
				{Metric: models.MetricThroughput, Comparison: models.CompareDrop, Threshold: 50, Window: 10 * time.Minute, Weight: 0.35},
				{Metric: models.MetricResponseTime, Comparison: models.CompareSpike, Threshold: 800, Window: 5 * time.Minute, Weight: 0.3},
			},
		},
		{
			ID:         "external-dependency-failure",
			Name:       "External dependency failure",
			Category:   models.CategoryExternalDependency,
			Confidence: 0.5,
			Indicators: []models.PatternIndicator{
				{Metric: models.MetricResponseTime, Comparison: models.CompareSpike, Threshold: 2000, Window: 5 * time.Minute, Weight: 0.5},
				{Metric: models.MetricErrorRate, Comparison: models.CompareAbove, Threshold: 3, Window: 10 * time.Minute, Weight: 0.3},
				{Metric: models.MetricThroughput, Comparison: models.CompareBelow, Threshold: 10, Window: 10 * time.Minute, Weight: 0.2},
			},
		},
	}
}
