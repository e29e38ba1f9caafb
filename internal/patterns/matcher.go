package patterns

import (
	"math"
	"sort"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

// DetectionThreshold is the confidence above which a pattern counts as detected.
const DetectionThreshold = 0.5

// Spike and drop comparisons scale the indicator threshold.
const (
	spikeFactor = 1.5
	dropFactor  = 0.5
)

const equalsEpsilon = 1e-9

// Matcher scores collections against the pattern registry.
type Matcher struct {
	registry *Registry
}

// NewMatcher creates a matcher over the given registry.
func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{registry: registry}
}

// Detect evaluates every registered pattern against the collection's
// performance snapshots and returns patterns whose weighted confidence
// exceeds the detection threshold, sorted descending by confidence. Each
// detection appends an example to the pattern's bounded history.
func (m *Matcher) Detect(collection models.IncidentDataCollection) []models.DetectedPattern {
	detected := make([]models.DetectedPattern, 0)

	for _, pattern := range m.registry.Snapshot() {
		confidence, matched := Score(pattern, collection.Snapshots)
		if confidence <= DetectionThreshold {
			continue
		}

		detected = append(detected, models.DetectedPattern{
			Pattern:           pattern,
			Confidence:        confidence,
			MatchedIndicators: matched,
		})

		m.registry.RecordDetection(pattern.ID, models.PatternExample{
			IncidentID: collection.Incident.ID,
			Timestamp:  collection.Incident.OpenedAt,
			Severity:   severityForConfidence(confidence),
			Duration:   collection.Incident.Duration(time.Now().UTC()),
		})
	}

	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Confidence > detected[j].Confidence
	})
	return detected
}

// Score returns the weighted match confidence of one pattern against the
// snapshots, along with the metric names of matched indicators. Confidence is
// always within [0, 1] and non-decreasing in the number of matched indicators.
func Score(pattern models.FaultPattern, snapshots []models.PerformanceSnapshot) (float64, []string) {
	totalWeight := pattern.TotalWeight()
	if totalWeight <= 0 {
		return 0, nil
	}

	matchedWeight := 0.0
	matched := make([]string, 0, len(pattern.Indicators))
	for _, indicator := range pattern.Indicators {
		if indicatorMatches(indicator, snapshots) {
			matchedWeight += indicator.Weight
			matched = append(matched, indicator.Metric)
		}
	}

	confidence := matchedWeight / totalWeight
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence, matched
}

// indicatorMatches reports whether any snapshot satisfies the indicator.
func indicatorMatches(indicator models.PatternIndicator, snapshots []models.PerformanceSnapshot) bool {
	for _, snapshot := range snapshots {
		value, ok := snapshot.Metric(indicator.Metric)
		if !ok {
			continue
		}
		if compare(indicator.Comparison, value, indicator.Threshold) {
			return true
		}
	}
	return false
}

func compare(cmp models.Comparison, value, threshold float64) bool {
	switch cmp {
	case models.CompareAbove:
		return value > threshold
	case models.CompareBelow:
		return value < threshold
	case models.CompareEquals:
		return math.Abs(value-threshold) < equalsEpsilon
	case models.CompareSpike:
		return value > spikeFactor*threshold
	case models.CompareDrop:
		return value < dropFactor*threshold
	default:
		return false
	}
}

func severityForConfidence(confidence float64) models.Severity {
	switch {
	case confidence > 0.9:
		return models.SeverityCritical
	case confidence > 0.75:
		return models.SeverityHigh
	case confidence > 0.6:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
