package engine

import (
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

// correlationRule sets the scoring window and causal weighting for one event
// type. Keeping these tabulated makes the scoring curve tunable without
// touching the algorithm.
type correlationRule struct {
	Window     time.Duration
	Multiplier float64
}

var correlationRules = map[models.EventType]correlationRule{
	models.EventDeployment:     {Window: 120 * time.Minute, Multiplier: 1.2},
	models.EventInfrastructure: {Window: 60 * time.Minute, Multiplier: 1.1},
}

const (
	correlationReportThreshold = 0.3
	sameEntityDeployBoost      = 1.5
)

// causalTierRule classifies a scored event; rules are evaluated in order and
// the first match wins.
type causalTierRule struct {
	MaxGap         time.Duration
	MinCorrelation float64
	Tier           models.CausalTier
}

var deploymentTierRules = []causalTierRule{
	{MaxGap: 30 * time.Minute, MinCorrelation: 0.8, Tier: models.TierLikelyCause},
	{MaxGap: 60 * time.Minute, MinCorrelation: 0.5, Tier: models.TierPossibleCause},
}

// Infrastructure events need both a tight gap and critical severity to count
// as a direct cause.
const (
	infraDirectCauseGap      = 15 * time.Minute
	infraDirectCauseSeverity = models.SeverityCritical
)

// Incident similarity weights. A candidate passing the threshold is similar.
const (
	similarityEntityWeight    = 0.3
	similarityConditionWeight = 0.4
	similarityPolicyWeight    = 0.2
	similarityHourWeight      = 0.1
	similarityHourTolerance   = 2 * time.Hour
	similarityThreshold       = 0.5
	similarityHistoryDays     = 90
	similarityMaxResults      = 5
)

// Cause ranking priors.
const (
	deploymentCauseProbability  = 0.8
	deploymentCauseWindow       = time.Hour
	errorClusterProbability     = 0.7
	degradationProbability      = 0.6
	degradationSnapshotFraction = 0.5
	degradedResponseTimeMs      = 1000
	degradedErrorRatePct        = 5
)

// Root-cause confidence blend and evidence-chain cap.
const (
	rootCauseProbabilityWeight = 0.6
	rootCauseChainWeight       = 0.4
	rootCauseChainCap          = 5
)

// riskFactorRule tabulates one risk signal's likelihood and impact scores.
type riskFactorRule struct {
	Name       string
	Likelihood float64
	Impact     float64
	Severity   models.Severity
}

var (
	riskCriticalSeverity = riskFactorRule{Name: "critical incident severity", Likelihood: 0.9, Impact: 0.9, Severity: models.SeverityCritical}
	riskEntitySpread     = riskFactorRule{Name: "failure spread across entities", Likelihood: 0.7, Impact: 0.8, Severity: models.SeverityHigh}
	riskSevereBusiness   = riskFactorRule{Name: "severe business impact", Likelihood: 0.8, Impact: 0.9, Severity: models.SeverityHigh}
	riskLongDuration     = riskFactorRule{Name: "prolonged incident duration", Likelihood: 0.6, Impact: 0.7, Severity: models.SeverityMedium}
)

const (
	riskEntitySpreadCount = 3
	riskLongDuration60m   = 60 * time.Minute
)

// Escalation probability model.
const (
	escalationBase           = 0.1
	escalationCriticalBonus  = 0.4
	escalationWarningBonus   = 0.2
	escalationDuration60mAdd = 0.3
	escalationDuration30mAdd = 0.1
	escalationFactorWeight   = 0.1
	escalationFloor          = 0.1
	escalationCeiling        = 0.95
	contingencyThreshold     = 0.7
)

// Business impact thresholds, applied against the worst observed error rate
// and the incident duration.
const (
	severeErrorRatePct      = 20
	significantErrorRatePct = 10
	moderateErrorRatePct    = 5
	severeDuration          = 2 * time.Hour
	significantDuration     = time.Hour
	moderateDuration        = 30 * time.Minute
)

// Resolution-time estimate model.
const (
	resolutionBase            = 60 * time.Minute
	resolutionCriticalScale   = 2.0
	resolutionWarningScale    = 1.5
	resolutionPerEntity       = 15 * time.Minute
	resolutionDeployDiscount  = 0.7
	resolutionExhaustionScale = 1.3
)

// Cascade recovery model.
const recoveryStepEstimate = 15 * time.Minute

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
