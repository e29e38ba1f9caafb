package models

import "time"

// AnomalyDirection distinguishes values above or below the series mean.
type AnomalyDirection string

const (
	AnomalySpike AnomalyDirection = "spike"
	AnomalyDrop  AnomalyDirection = "drop"
)

// Anomaly is a statistically unusual point in an entity metric series.
type Anomaly struct {
	Timestamp  time.Time
	EntityID   string
	Metric     string
	Value      float64
	Expected   float64
	Deviation  float64
	Severity   Severity
	Direction  AnomalyDirection
	Confidence float64
}

// CauseType classifies a root-cause hypothesis.
type CauseType string

const (
	CauseCodeDeployment        CauseType = "code_deployment"
	CauseResourceExhaustion    CauseType = "resource_exhaustion"
	CauseExternalDependency    CauseType = "external_dependency"
	CauseInfrastructureIssue   CauseType = "infrastructure_issue"
	CauseErrorSurge            CauseType = "error_surge"
	CausePerformanceRegression CauseType = "performance_regression"
)

// Evidence supports a root-cause hypothesis.
type Evidence struct {
	Type        string
	Description string
	Timestamp   time.Time
	Source      string
}

// PossibleCause is a typed hypothesis with probability and evidence.
type PossibleCause struct {
	Type        CauseType
	Description string
	Probability float64
	Evidence    []Evidence
	Impact      Severity
}

// RootCauseAnalysis holds the ranked causes and the assembled evidence chain.
type RootCauseAnalysis struct {
	PrimaryCause PossibleCause
	Chain        []string
	Alternatives []PossibleCause
	Confidence   float64
}

// EventType distinguishes correlated event origins.
type EventType string

const (
	EventDeployment     EventType = "deployment"
	EventInfrastructure EventType = "infrastructure"
)

// CausalTier classifies how likely a correlated event caused the incident.
type CausalTier string

const (
	TierDirectCause   CausalTier = "direct_cause"
	TierLikelyCause   CausalTier = "likely_cause"
	TierPossibleCause CausalTier = "possible_cause"
	TierCoincidental  CausalTier = "coincidental"
)

// CorrelatedEvent is a deployment or infrastructure event scored against the
// incident open time.
type CorrelatedEvent struct {
	Type           EventType
	Timestamp      time.Time
	EntityID       string
	Description    string
	Correlation    float64
	TimeGapMinutes float64
	Impact         CausalTier
}

// SimilarIncident pairs a historical incident with its similarity score.
type SimilarIncident struct {
	Incident Incident
	Score    float64
}

// ErrorPatternSummary aggregates error events by class.
type ErrorPatternSummary struct {
	Class     string
	Count     int
	Entities  []string
	FirstSeen time.Time
	LastSeen  time.Time
	Severity  Severity
}

// ImpactTier grades business impact per axis.
type ImpactTier string

const (
	ImpactMinimal     ImpactTier = "minimal"
	ImpactModerate    ImpactTier = "moderate"
	ImpactSignificant ImpactTier = "significant"
	ImpactSevere      ImpactTier = "severe"
)

// BusinessImpact is the four-axis impact classification.
type BusinessImpact struct {
	User       ImpactTier
	Revenue    ImpactTier
	Reputation ImpactTier
	Compliance ImpactTier
}

// RiskFactor is one contributing risk signal.
type RiskFactor struct {
	Name       string
	Likelihood float64
	Impact     float64
	Severity   Severity
}

// RiskAssessment summarises risk, escalation and recovery expectations.
type RiskAssessment struct {
	Level                 Severity
	Factors               []RiskFactor
	EscalationProbability float64
	Business              BusinessImpact
	EstimatedResolution   time.Duration
}

// RecommendationPriority orders remediation urgency.
type RecommendationPriority string

const (
	PriorityImmediate RecommendationPriority = "immediate"
	PriorityHigh      RecommendationPriority = "high"
	PriorityMedium    RecommendationPriority = "medium"
	PriorityLow       RecommendationPriority = "low"
)

// Recommendation is a prioritized, time-boxed remediation entry.
type Recommendation struct {
	Priority     RecommendationPriority
	Category     string
	Summary      string
	Actions      []string
	TimeEstimate time.Duration
}

// ActionPlan regroups recommendations into execution buckets.
type ActionPlan struct {
	Immediate   []Recommendation
	ShortTerm   []Recommendation
	LongTerm    []Recommendation
	Contingency []string
	GeneratedAt time.Time
}

// AnalysisResult is the full outcome of one analysis invocation.
type AnalysisResult struct {
	AnalysisID       string
	Incident         Incident
	Patterns         []DetectedPattern
	Anomalies        []Anomaly
	ErrorPatterns    []ErrorPatternSummary
	CorrelatedEvents []CorrelatedEvent
	RootCause        RootCauseAnalysis
	Risk             RiskAssessment
	Recommendations  []Recommendation
	Confidence       float64
	GeneratedAt      time.Time
}

// IncidentReport is the full, presentation-ready analysis package for one
// incident.
type IncidentReport struct {
	Incident    Incident
	Summary     string
	Analysis    AnalysisResult
	Cascade     CascadeAnalysis
	Similar     []SimilarIncident
	Plan        ActionPlan
	GeneratedAt time.Time
}

// CascadeStep is one link in an ordered failure chain.
type CascadeStep struct {
	System      string
	FailureMode string
	Timestamp   time.Time
	Impact      Severity
	DependsOn   []string
}

// RecoveryStep is one step of the reverse-ordered recovery plan.
type RecoveryStep struct {
	Order     int
	System    string
	Action    string
	Estimate  time.Duration
	Rollback  string
	DependsOn []string
}

// CascadeAnalysis models a failure propagating across dependent systems.
type CascadeAnalysis struct {
	PrimaryFailure  string
	Chain           []CascadeStep
	AffectedSystems []string
	Containment     []string
	Recovery        []RecoveryStep
}

// Resolution is operator feedback used by the learning path.
type Resolution struct {
	RootCause  string
	FixApplied string
	ResolvedAt time.Time
	Notes      string
}
