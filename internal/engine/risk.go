package engine

import (
	"log/slog"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

// RiskAssessor derives risk factors, escalation probability, business impact
// and a resolution-time estimate from collected incident data.
type RiskAssessor struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewRiskAssessor constructs a RiskAssessor.
func NewRiskAssessor(logger *slog.Logger) *RiskAssessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskAssessor{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Assess produces the full risk picture for one incident. primaryCause may be
// the zero value when root-cause analysis has not run.
func (r *RiskAssessor) Assess(collection models.IncidentDataCollection, primaryCause models.PossibleCause) models.RiskAssessment {
	business := r.BusinessImpact(collection)
	factors := r.RiskFactors(collection, business)

	assessment := models.RiskAssessment{
		Level:                 overallRiskLevel(factors),
		Factors:               factors,
		EscalationProbability: r.EscalationProbability(collection.Incident, factors),
		Business:              business,
		EstimatedResolution:   r.EstimateResolution(collection, primaryCause),
	}
	return assessment
}

// RiskFactors evaluates each tabulated risk rule against the incident.
func (r *RiskAssessor) RiskFactors(collection models.IncidentDataCollection, business models.BusinessImpact) []models.RiskFactor {
	incident := collection.Incident
	var factors []models.RiskFactor

	if incident.Priority == models.PriorityCritical {
		factors = append(factors, factorFromRule(riskCriticalSeverity))
	}
	if len(collection.Entities) > riskEntitySpreadCount {
		factors = append(factors, factorFromRule(riskEntitySpread))
	}
	if severeBusinessImpact(business) {
		factors = append(factors, factorFromRule(riskSevereBusiness))
	}
	if incident.Duration(r.now()) > riskLongDuration60m {
		factors = append(factors, factorFromRule(riskLongDuration))
	}
	return factors
}

func factorFromRule(rule riskFactorRule) models.RiskFactor {
	return models.RiskFactor{
		Name:       rule.Name,
		Likelihood: rule.Likelihood,
		Impact:     rule.Impact,
		Severity:   rule.Severity,
	}
}

func severeBusinessImpact(business models.BusinessImpact) bool {
	return business.User == models.ImpactSevere ||
		business.Revenue == models.ImpactSevere ||
		business.Reputation == models.ImpactSevere ||
		business.Compliance == models.ImpactSevere
}

// overallRiskLevel is the maximum severity across contributing factors.
func overallRiskLevel(factors []models.RiskFactor) models.Severity {
	level := models.SeverityLow
	for _, factor := range factors {
		level = models.MaxSeverity(level, factor.Severity)
	}
	return level
}

// EscalationProbability estimates the chance the incident escalates. The
// result is always within [escalationFloor, escalationCeiling] regardless of
// how many factors contribute.
func (r *RiskAssessor) EscalationProbability(incident models.Incident, factors []models.RiskFactor) float64 {
	probability := escalationBase

	switch incident.Priority {
	case models.PriorityCritical:
		probability += escalationCriticalBonus
	case models.PriorityWarning:
		probability += escalationWarningBonus
	}

	duration := incident.Duration(r.now())
	switch {
	case duration > 60*time.Minute:
		probability += escalationDuration60mAdd
	case duration > 30*time.Minute:
		probability += escalationDuration30mAdd
	}

	for _, factor := range factors {
		probability += factor.Likelihood * factor.Impact * escalationFactorWeight
	}

	return clamp(probability, escalationFloor, escalationCeiling)
}

// BusinessImpact classifies the four impact axes from the worst observed
// error rate and the incident duration.
func (r *RiskAssessor) BusinessImpact(collection models.IncidentDataCollection) models.BusinessImpact {
	errorRate := maxErrorRate(collection.Snapshots)
	duration := collection.Incident.Duration(r.now())

	return models.BusinessImpact{
		User:       errorRateTier(errorRate),
		Revenue:    durationTier(duration),
		Reputation: maxTier(errorRateTier(errorRate), durationTier(duration)),
		Compliance: complianceTier(collection.Incident, duration),
	}
}

func maxErrorRate(snapshots []models.PerformanceSnapshot) float64 {
	worst := 0.0
	for _, snapshot := range snapshots {
		if snapshot.ErrorRate > worst {
			worst = snapshot.ErrorRate
		}
	}
	return worst
}

func errorRateTier(rate float64) models.ImpactTier {
	switch {
	case rate > severeErrorRatePct:
		return models.ImpactSevere
	case rate > significantErrorRatePct:
		return models.ImpactSignificant
	case rate > moderateErrorRatePct:
		return models.ImpactModerate
	default:
		return models.ImpactMinimal
	}
}

func durationTier(duration time.Duration) models.ImpactTier {
	switch {
	case duration > severeDuration:
		return models.ImpactSevere
	case duration > significantDuration:
		return models.ImpactSignificant
	case duration > moderateDuration:
		return models.ImpactModerate
	default:
		return models.ImpactMinimal
	}
}

// complianceTier only climbs for long-running critical incidents.
func complianceTier(incident models.Incident, duration time.Duration) models.ImpactTier {
	if incident.Priority != models.PriorityCritical {
		return models.ImpactMinimal
	}
	switch {
	case duration > severeDuration:
		return models.ImpactSignificant
	case duration > significantDuration:
		return models.ImpactModerate
	default:
		return models.ImpactMinimal
	}
}

func maxTier(a, b models.ImpactTier) models.ImpactTier {
	if impactRank(b) > impactRank(a) {
		return b
	}
	return a
}

func impactRank(tier models.ImpactTier) int {
	switch tier {
	case models.ImpactSevere:
		return 3
	case models.ImpactSignificant:
		return 2
	case models.ImpactModerate:
		return 1
	default:
		return 0
	}
}

// EstimateResolution projects time to resolution from severity, blast radius
// and the primary cause type.
func (r *RiskAssessor) EstimateResolution(collection models.IncidentDataCollection, primaryCause models.PossibleCause) time.Duration {
	estimate := float64(resolutionBase)

	switch collection.Incident.Priority {
	case models.PriorityCritical:
		estimate *= resolutionCriticalScale
	case models.PriorityWarning:
		estimate *= resolutionWarningScale
	}

	estimate += float64(len(collection.Entities)) * float64(resolutionPerEntity)

	switch primaryCause.Type {
	case models.CauseCodeDeployment:
		estimate *= resolutionDeployDiscount
	case models.CauseResourceExhaustion:
		estimate *= resolutionExhaustionScale
	}

	return time.Duration(estimate).Round(time.Minute)
}
