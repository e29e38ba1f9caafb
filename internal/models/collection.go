package models

import "time"

// TimelineEvent records a discrete occurrence during the incident window.
type TimelineEvent struct {
	Timestamp   time.Time
	Description string
	Source      string
}

// MetricPoint is a single sample in an entity metric time series.
type MetricPoint struct {
	Timestamp time.Time
	Value     float64
}

// AffectedEntity bundles an entity reference with its metric series.
type AffectedEntity struct {
	EntityID string
	Name     string
	Type     string
	Metrics  map[string][]MetricPoint
}

// PerformanceSnapshot is one time bucket of aggregate entity performance.
// Consumers assume snapshots are ordered ascending by Timestamp.
type PerformanceSnapshot struct {
	Timestamp      time.Time
	EntityID       string
	ResponseTimeMs float64
	Throughput     float64
	ErrorRate      float64
	Apdex          float64
	CPUPercent     float64
	MemoryPercent  float64
}

// Snapshot metric names used by fault-pattern indicators.
const (
	MetricResponseTime = "response_time"
	MetricThroughput   = "throughput"
	MetricErrorRate    = "error_rate"
	MetricApdex        = "apdex"
	MetricCPU          = "cpu"
	MetricMemory       = "memory"
)

// Metric resolves a snapshot field by indicator metric name.
func (s PerformanceSnapshot) Metric(name string) (float64, bool) {
	switch name {
	case MetricResponseTime:
		return s.ResponseTimeMs, true
	case MetricThroughput:
		return s.Throughput, true
	case MetricErrorRate:
		return s.ErrorRate, true
	case MetricApdex:
		return s.Apdex, true
	case MetricCPU:
		return s.CPUPercent, true
	case MetricMemory:
		return s.MemoryPercent, true
	default:
		return 0, false
	}
}

// ErrorEvent is an aggregated application error occurrence.
type ErrorEvent struct {
	Timestamp time.Time
	EntityID  string
	Class     string
	Message   string
	Count     int
	Severity  Severity
}

// DeploymentEvent records a code deployment near the incident window.
type DeploymentEvent struct {
	Timestamp   time.Time
	EntityID    string
	Revision    string
	Description string
	User        string
}

// InfrastructureEvent records a host or platform level event.
type InfrastructureEvent struct {
	Timestamp   time.Time
	EntityID    string
	Kind        string
	Severity    Severity
	Description string
}

// IncidentDataCollection is the unit of work for one analysis pass. It is
// built fresh per analysis call (or served from cache) and never mutated
// after construction.
type IncidentDataCollection struct {
	Incident    Incident
	Window      TimeWindow
	Timeline    []TimelineEvent
	Entities    []AffectedEntity
	Snapshots   []PerformanceSnapshot
	ErrorEvents []ErrorEvent
	Deployments []DeploymentEvent
	InfraEvents []InfrastructureEvent
	CollectedAt time.Time
}
