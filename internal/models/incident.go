package models

import "time"

// IncidentState enumerates the lifecycle states reported by the telemetry platform.
type IncidentState string

const (
	IncidentOpen         IncidentState = "open"
	IncidentAcknowledged IncidentState = "acknowledged"
	IncidentClosed       IncidentState = "closed"
)

// Priority captures the alerting priority assigned by the triggering policy.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityWarning  Priority = "warning"
	PriorityInfo     Priority = "info"
)

// Incident is the alerting incident as reported by the telemetry platform.
// Incidents are created upstream and only read here; a closed incident is
// immutable.
type Incident struct {
	ID          string
	Title       string
	State       IncidentState
	Priority    Priority
	PolicyID    string
	ConditionID string
	EntityID    string
	OpenedAt    time.Time
	ClosedAt    time.Time
}

// Open reports whether the incident has not been closed yet.
func (i Incident) Open() bool {
	return i.ClosedAt.IsZero()
}

// Duration returns the incident duration, using now for still-open incidents.
func (i Incident) Duration(now time.Time) time.Duration {
	end := i.ClosedAt
	if end.IsZero() {
		end = now
	}
	if end.Before(i.OpenedAt) {
		return 0
	}
	return end.Sub(i.OpenedAt)
}

// TimeWindow bounds the telemetry collection window around an incident.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Severity captures impact levels used across anomalies, risk and cascades.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for max-of comparisons.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}
