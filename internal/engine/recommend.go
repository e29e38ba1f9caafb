package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

// Recommender maps analysis findings onto prioritized remediation entries and
// regroups them into an action plan.
type Recommender struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewRecommender constructs a Recommender.
func NewRecommender(logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Recommend derives remediation entries from risk level, detected patterns,
// anomaly severity and the primary cause, sorted by priority.
func (r *Recommender) Recommend(result models.AnalysisResult) []models.Recommendation {
	var recs []models.Recommendation

	recs = append(recs, riskRecommendations(result.Risk)...)
	recs = append(recs, patternRecommendations(result.Patterns)...)
	recs = append(recs, anomalyRecommendations(result.Anomalies)...)
	recs = append(recs, causeRecommendations(result.RootCause.PrimaryCause)...)

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank(recs[i].Priority) < priorityRank(recs[j].Priority)
	})
	return recs
}

func riskRecommendations(risk models.RiskAssessment) []models.Recommendation {
	var recs []models.Recommendation
	switch risk.Level {
	case models.SeverityCritical:
		recs = append(recs, models.Recommendation{
			Priority: models.PriorityImmediate,
			Category: "incident response",
			Summary:  "engage the on-call escalation path",
			Actions: []string{
				"page the owning team and open a bridge",
				"freeze non-essential changes to affected systems",
			},
			TimeEstimate: 15 * time.Minute,
		})
	case models.SeverityHigh:
		recs = append(recs, models.Recommendation{
			Priority: models.PriorityHigh,
			Category: "incident response",
			Summary:  "prepare escalation and notify stakeholders",
			Actions: []string{
				"notify the owning team",
				"pre-stage rollback and scaling actions",
			},
			TimeEstimate: 30 * time.Minute,
		})
	}
	if risk.EscalationProbability > contingencyThreshold {
		recs = append(recs, models.Recommendation{
			Priority:     models.PriorityHigh,
			Category:     "contingency",
			Summary:      "high escalation probability, prepare fallback capacity",
			Actions:      []string{"verify failover targets", "warm standby capacity"},
			TimeEstimate: 30 * time.Minute,
		})
	}
	return recs
}

func patternRecommendations(patterns []models.DetectedPattern) []models.Recommendation {
	var recs []models.Recommendation
	for _, detected := range patterns {
		switch detected.Pattern.Category {
		case models.CategoryResourceExhaustion:
			recs = append(recs, models.Recommendation{
				Priority:     models.PriorityHigh,
				Category:     "capacity",
				Summary:      "resource exhaustion signature matched",
				Actions:      []string{"scale the affected tier", "inspect for leaks since the last release"},
				TimeEstimate: 45 * time.Minute,
			})
		case models.CategoryCascadeFailure:
			recs = append(recs, models.Recommendation{
				Priority:     models.PriorityImmediate,
				Category:     "containment",
				Summary:      "cascade signature matched, contain the blast radius",
				Actions:      []string{"enable circuit breakers", "shed non-critical load"},
				TimeEstimate: 20 * time.Minute,
			})
		case models.CategoryExternalDependency:
			recs = append(recs, models.Recommendation{
				Priority:     models.PriorityHigh,
				Category:     "dependency",
				Summary:      "external dependency degradation matched",
				Actions:      []string{"check provider status pages", "activate cached or degraded mode"},
				TimeEstimate: 30 * time.Minute,
			})
		case models.CategoryErrorSpike:
			recs = append(recs, models.Recommendation{
				Priority:     models.PriorityHigh,
				Category:     "errors",
				Summary:      "error surge signature matched",
				Actions:      []string{"sample stack traces of the dominant error class", "correlate with recent changes"},
				TimeEstimate: 40 * time.Minute,
			})
		case models.CategoryPerformanceDegradation:
			recs = append(recs, models.Recommendation{
				Priority:     models.PriorityMedium,
				Category:     "performance",
				Summary:      "gradual degradation signature matched",
				Actions:      []string{"profile slow endpoints", "review recent query plans"},
				TimeEstimate: time.Hour,
			})
		}
	}
	return recs
}

func anomalyRecommendations(anomalies []models.Anomaly) []models.Recommendation {
	worst := models.SeverityLow
	for _, anomaly := range anomalies {
		worst = models.MaxSeverity(worst, anomaly.Severity)
	}
	if worst != models.SeverityCritical && worst != models.SeverityHigh {
		return nil
	}
	return []models.Recommendation{{
		Priority:     models.PriorityHigh,
		Category:     "metrics",
		Summary:      "severe metric anomalies detected",
		Actions:      []string{"review the anomalous metric dashboards", "tighten alert thresholds if the baseline moved"},
		TimeEstimate: 30 * time.Minute,
	}}
}

func causeRecommendations(primary models.PossibleCause) []models.Recommendation {
	switch primary.Type {
	case models.CauseCodeDeployment:
		return []models.Recommendation{{
			Priority:     models.PriorityImmediate,
			Category:     "rollback",
			Summary:      "recent deployment is the leading cause",
			Actions:      []string{"roll back the implicated revision", "hold further deploys until stable"},
			TimeEstimate: 20 * time.Minute,
		}}
	case models.CauseResourceExhaustion:
		return []models.Recommendation{{
			Priority:     models.PriorityHigh,
			Category:     "capacity",
			Summary:      "resource exhaustion is the leading cause",
			Actions:      []string{"add headroom to the constrained resource", "audit limits and quotas"},
			TimeEstimate: 45 * time.Minute,
		}}
	case models.CauseErrorSurge:
		return []models.Recommendation{{
			Priority:     models.PriorityHigh,
			Category:     "errors",
			Summary:      "error surge is the leading cause",
			Actions:      []string{"triage the dominant error class", "deploy a targeted fix or feature-flag it off"},
			TimeEstimate: time.Hour,
		}}
	default:
		return nil
	}
}

// BuildActionPlan regroups recommendations into execution buckets and adds
// contingency plans when escalation is likely.
func (r *Recommender) BuildActionPlan(result models.AnalysisResult) models.ActionPlan {
	plan := models.ActionPlan{GeneratedAt: r.now()}

	for _, rec := range result.Recommendations {
		switch rec.Priority {
		case models.PriorityImmediate:
			plan.Immediate = append(plan.Immediate, rec)
		case models.PriorityHigh:
			plan.ShortTerm = append(plan.ShortTerm, rec)
		default:
			plan.LongTerm = append(plan.LongTerm, rec)
		}
	}

	if result.Risk.EscalationProbability > contingencyThreshold {
		plan.Contingency = []string{
			"page secondary on-call if no improvement within 30 minutes",
			"prepare customer communication for extended impact",
			"stage full failover of " + result.Incident.EntityID,
		}
	}
	return plan
}

func priorityRank(p models.RecommendationPriority) int {
	switch p {
	case models.PriorityImmediate:
		return 0
	case models.PriorityHigh:
		return 1
	case models.PriorityMedium:
		return 2
	default:
		return 3
	}
}
