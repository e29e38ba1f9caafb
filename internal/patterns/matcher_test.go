package patterns

import (
	"testing"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

func healthySnapshot(at time.Time) models.PerformanceSnapshot {
	return models.PerformanceSnapshot{
		Timestamp:      at,
		EntityID:       "svc-1",
		ResponseTimeMs: 120,
		Throughput:     150,
		ErrorRate:      0.5,
		Apdex:          0.95,
		CPUPercent:     35,
		MemoryPercent:  40,
	}
}

func TestDetectNothingOnEmptyCollection(t *testing.T) {
	matcher := NewMatcher(NewRegistry())
	collection := models.IncidentDataCollection{
		Incident: models.Incident{ID: "inc-1", OpenedAt: time.Now()},
	}
	if detected := matcher.Detect(collection); len(detected) != 0 {
		t.Fatalf("expected no detections without snapshots, got %d", len(detected))
	}
}

func TestDetectNothingOnHealthySnapshots(t *testing.T) {
	matcher := NewMatcher(NewRegistry())
	now := time.Now()
	collection := models.IncidentDataCollection{
		Incident: models.Incident{ID: "inc-1", OpenedAt: now},
		Snapshots: []models.PerformanceSnapshot{
			healthySnapshot(now.Add(-10 * time.Minute)),
			healthySnapshot(now.Add(-5 * time.Minute)),
		},
	}
	if detected := matcher.Detect(collection); len(detected) != 0 {
		t.Fatalf("expected no detections for healthy snapshots, got %d", len(detected))
	}
}

func TestDetectResourceExhaustion(t *testing.T) {
	registry := NewRegistry()
	matcher := NewMatcher(registry)
	now := time.Now()

	saturated := healthySnapshot(now.Add(-5 * time.Minute))
	saturated.CPUPercent = 97
	saturated.MemoryPercent = 95
	saturated.ResponseTimeMs = 2500

	collection := models.IncidentDataCollection{
		Incident:  models.Incident{ID: "inc-2", OpenedAt: now},
		Snapshots: []models.PerformanceSnapshot{healthySnapshot(now.Add(-10 * time.Minute)), saturated},
	}

	detected := matcher.Detect(collection)
	found := false
	for _, d := range detected {
		if d.Pattern.ID == "resource-exhaustion" {
			found = true
			if d.Confidence <= DetectionThreshold || d.Confidence > 1 {
				t.Fatalf("confidence out of range: %f", d.Confidence)
			}
		}
	}
	if !found {
		t.Fatalf("expected resource-exhaustion pattern, got %+v", detected)
	}

	pattern, ok := registry.Get("resource-exhaustion")
	if !ok {
		t.Fatalf("pattern missing from registry")
	}
	if len(pattern.History) != 1 || pattern.History[0].IncidentID != "inc-2" {
		t.Fatalf("expected one recorded example for inc-2, got %+v", pattern.History)
	}
}

func TestScoreMonotonicInMatchedIndicators(t *testing.T) {
	pattern := models.FaultPattern{
		ID: "p",
		Indicators: []models.PatternIndicator{
			{Metric: models.MetricCPU, Comparison: models.CompareAbove, Threshold: 80, Weight: 0.5},
			{Metric: models.MetricMemory, Comparison: models.CompareAbove, Threshold: 80, Weight: 0.5},
		},
	}

	one := models.PerformanceSnapshot{CPUPercent: 90, MemoryPercent: 10}
	both := models.PerformanceSnapshot{CPUPercent: 90, MemoryPercent: 90}

	scoreOne, matchedOne := Score(pattern, []models.PerformanceSnapshot{one})
	scoreBoth, matchedBoth := Score(pattern, []models.PerformanceSnapshot{both})

	if scoreBoth < scoreOne {
		t.Fatalf("score decreased with more matches: %f < %f", scoreBoth, scoreOne)
	}
	if len(matchedOne) != 1 || len(matchedBoth) != 2 {
		t.Fatalf("unexpected matched indicators: %v vs %v", matchedOne, matchedBoth)
	}
	if scoreBoth != 1 {
		t.Fatalf("expected full match score 1, got %f", scoreBoth)
	}
}

func TestCompareModes(t *testing.T) {
	cases := []struct {
		cmp       models.Comparison
		value     float64
		threshold float64
		want      bool
	}{
		{models.CompareAbove, 11, 10, true},
		{models.CompareAbove, 10, 10, false},
		{models.CompareBelow, 9, 10, true},
		{models.CompareEquals, 10, 10, true},
		{models.CompareSpike, 16, 10, true},
		{models.CompareSpike, 14, 10, false},
		{models.CompareDrop, 4, 10, true},
		{models.CompareDrop, 6, 10, false},
	}
	for _, tc := range cases {
		if got := compare(tc.cmp, tc.value, tc.threshold); got != tc.want {
			t.Errorf("compare(%s, %f, %f) = %v, want %v", tc.cmp, tc.value, tc.threshold, got, tc.want)
		}
	}
}
