package detect

import (
	"testing"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

func series(values ...float64) []models.MetricPoint {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	points := make([]models.MetricPoint, 0, len(values))
	for i, v := range values {
		points = append(points, models.MetricPoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: v})
	}
	return points
}

func TestDetectShortSeriesReturnsNothing(t *testing.T) {
	detector := NewDetector()
	anomalies := detector.Detect(series(1, 2, 3, 4, 5, 6, 7, 8, 9), "response_time", "svc-1")
	if len(anomalies) != 0 {
		t.Fatalf("expected no anomalies for short series, got %d", len(anomalies))
	}
}

func TestDetectConstantSeriesReturnsNothing(t *testing.T) {
	detector := NewDetector()
	values := make([]float64, 30)
	for i := range values {
		values[i] = 42
	}
	anomalies := detector.Detect(series(values...), "throughput", "svc-1")
	if len(anomalies) != 0 {
		t.Fatalf("expected no anomalies for constant series, got %d", len(anomalies))
	}
}

func TestDetectSingleOutlierSpike(t *testing.T) {
	detector := NewDetector()
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100
	}
	values[7] = 500

	anomalies := detector.Detect(series(values...), "response_time", "svc-1")
	if len(anomalies) != 1 {
		t.Fatalf("expected exactly one anomaly, got %d", len(anomalies))
	}

	anomaly := anomalies[0]
	if anomaly.Direction != models.AnomalySpike {
		t.Fatalf("expected spike, got %s", anomaly.Direction)
	}
	if anomaly.Severity != models.SeverityHigh && anomaly.Severity != models.SeverityCritical {
		t.Fatalf("expected high or critical severity, got %s", anomaly.Severity)
	}
	if anomaly.Value != 500 {
		t.Fatalf("expected anomalous value 500, got %f", anomaly.Value)
	}
	if anomaly.Confidence <= 0 || anomaly.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", anomaly.Confidence)
	}
}

func TestDetectDropDirection(t *testing.T) {
	detector := NewDetector()
	values := make([]float64, 20)
	for i := range values {
		values[i] = 1000
	}
	values[3] = 10

	anomalies := detector.Detect(series(values...), "throughput", "svc-1")
	if len(anomalies) != 1 {
		t.Fatalf("expected exactly one anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Direction != models.AnomalyDrop {
		t.Fatalf("expected drop, got %s", anomalies[0].Direction)
	}
}

func TestSeverityTiers(t *testing.T) {
	cases := []struct {
		deviation float64
		want      models.Severity
	}{
		{2.1, models.SeverityLow},
		{2.6, models.SeverityMedium},
		{3.5, models.SeverityHigh},
		{4.5, models.SeverityCritical},
	}
	for _, tc := range cases {
		if got := severityForDeviation(tc.deviation); got != tc.want {
			t.Errorf("deviation %.1f: expected %s, got %s", tc.deviation, tc.want, got)
		}
	}
}
