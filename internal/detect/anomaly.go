package detect

import (
	"math"

	"github.com/faultlinestack/faultline/internal/models"
)

// MinSamples is the smallest series length the detector will score; shorter
// series carry too little signal for a mean/stddev baseline.
const MinSamples = 10

// Deviation thresholds, in standard deviations. Tabulated so tests can
// exercise the tier boundaries directly.
const (
	AnomalyThreshold  = 2.0
	mediumThreshold   = 2.5
	highThreshold     = 3.0
	criticalThreshold = 4.0
)

// Detector flags statistically unusual values in a metric time series using a
// static baseline computed once over the whole series. It holds no state
// between calls.
type Detector struct{}

// NewDetector creates an anomaly detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns anomalies for points deviating more than AnomalyThreshold
// standard deviations from the series mean. A constant series (zero variance)
// produces no anomalies.
func (d *Detector) Detect(series []models.MetricPoint, metric, entityID string) []models.Anomaly {
	if len(series) < MinSamples {
		return nil
	}

	mean, stdDev := baseline(series)
	if stdDev == 0 {
		return nil
	}

	anomalies := make([]models.Anomaly, 0)
	for _, point := range series {
		deviation := math.Abs(point.Value-mean) / stdDev
		if deviation <= AnomalyThreshold {
			continue
		}

		direction := models.AnomalySpike
		if point.Value < mean {
			direction = models.AnomalyDrop
		}

		anomalies = append(anomalies, models.Anomaly{
			Timestamp:  point.Timestamp,
			EntityID:   entityID,
			Metric:     metric,
			Value:      point.Value,
			Expected:   mean,
			Deviation:  deviation,
			Severity:   severityForDeviation(deviation),
			Direction:  direction,
			Confidence: math.Min(deviation/criticalThreshold, 1),
		})
	}
	return anomalies
}

func baseline(series []models.MetricPoint) (mean, stdDev float64) {
	for _, point := range series {
		mean += point.Value
	}
	mean /= float64(len(series))

	variance := 0.0
	for _, point := range series {
		diff := point.Value - mean
		variance += diff * diff
	}
	variance /= float64(len(series))
	return mean, math.Sqrt(variance)
}

func severityForDeviation(deviation float64) models.Severity {
	switch {
	case deviation > criticalThreshold:
		return models.SeverityCritical
	case deviation > highThreshold:
		return models.SeverityHigh
	case deviation > mediumThreshold:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
