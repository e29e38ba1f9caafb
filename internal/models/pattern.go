package models

import "time"

// PatternCategory classifies known failure modes.
type PatternCategory string

const (
	CategoryPerformanceDegradation PatternCategory = "performance_degradation"
	CategoryErrorSpike             PatternCategory = "error_spike"
	CategoryResourceExhaustion     PatternCategory = "resource_exhaustion"
	CategoryCascadeFailure         PatternCategory = "cascade_failure"
	CategoryExternalDependency     PatternCategory = "external_dependency"
)

// Comparison enumerates indicator comparison modes.
type Comparison string

const (
	CompareAbove  Comparison = "above"
	CompareBelow  Comparison = "below"
	CompareEquals Comparison = "equals"
	CompareSpike  Comparison = "spike"
	CompareDrop   Comparison = "drop"
)

// PatternIndicator is one weighted condition of a fault signature.
type PatternIndicator struct {
	Metric     string
	Comparison Comparison
	Threshold  float64
	Window     time.Duration
	Weight     float64
}

// PatternExample records one historical match of a pattern.
type PatternExample struct {
	IncidentID string
	Timestamp  time.Time
	Severity   Severity
	Duration   time.Duration
}

// FaultPattern is a named, weighted signature of indicator conditions that,
// when sufficiently matched, suggests a known failure mode. History keeps the
// 10 most recent examples, newest first.
type FaultPattern struct {
	ID         string
	Name       string
	Category   PatternCategory
	Indicators []PatternIndicator
	Confidence float64
	Frequency  int
	LastSeen   time.Time
	History    []PatternExample
}

// MaxPatternHistory bounds the per-pattern example history.
const MaxPatternHistory = 10

// TotalWeight sums the indicator weights of the pattern.
func (p FaultPattern) TotalWeight() float64 {
	total := 0.0
	for _, ind := range p.Indicators {
		total += ind.Weight
	}
	return total
}

// DetectedPattern pairs a pattern with the confidence of one incident match.
type DetectedPattern struct {
	Pattern           FaultPattern
	Confidence        float64
	MatchedIndicators []string
}
