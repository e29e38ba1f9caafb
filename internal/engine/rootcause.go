package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/utils"
)

// CauseRanker generates and ranks root-cause hypotheses from the collected
// incident data, then assembles the top hypothesis into a causal chain.
type CauseRanker struct {
	logger *slog.Logger
}

// NewCauseRanker constructs a CauseRanker.
func NewCauseRanker(logger *slog.Logger) *CauseRanker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CauseRanker{logger: logger}
}

// Analyze ranks possible causes and builds the primary causal chain. When no
// hypothesis can be generated the result carries a generic low-confidence
// performance-regression cause.
func (r *CauseRanker) Analyze(collection models.IncidentDataCollection) models.RootCauseAnalysis {
	causes := r.RankCauses(collection)
	if len(causes) == 0 {
		causes = []models.PossibleCause{fallbackCause(collection.Incident)}
	}

	primary := causes[0]
	analysis := models.RootCauseAnalysis{
		PrimaryCause: primary,
		Chain:        buildChain(primary),
		Confidence:   rootCauseConfidence(primary),
	}
	if len(causes) > 1 {
		end := len(causes)
		if end > 3 {
			end = 3
		}
		analysis.Alternatives = causes[1:end]
	}
	return analysis
}

// RankCauses derives typed hypotheses from deployments, error clusters and
// sustained degradation, sorted by descending probability.
func (r *CauseRanker) RankCauses(collection models.IncidentDataCollection) []models.PossibleCause {
	var causes []models.PossibleCause

	if cause, ok := deploymentCause(collection); ok {
		causes = append(causes, cause)
	}
	if cause, ok := errorClusterCause(collection); ok {
		causes = append(causes, cause)
	}
	if cause, ok := degradationCause(collection); ok {
		causes = append(causes, cause)
	}

	sort.SliceStable(causes, func(i, j int) bool {
		return causes[i].Probability > causes[j].Probability
	})
	return causes
}

// deploymentCause fires when a deployment to the affected entity landed
// within an hour of the incident opening.
func deploymentCause(collection models.IncidentDataCollection) (models.PossibleCause, bool) {
	incident := collection.Incident
	var nearest *models.DeploymentEvent
	nearestGap := deploymentCauseWindow.Minutes()

	for i := range collection.Deployments {
		deploy := collection.Deployments[i]
		gap := utils.DurationMinutes(deploy.Timestamp, incident.OpenedAt)
		if gap <= nearestGap {
			nearest = &collection.Deployments[i]
			nearestGap = gap
		}
	}
	if nearest == nil {
		return models.PossibleCause{}, false
	}

	evidence := []models.Evidence{{
		Type:        "deployment",
		Description: fmt.Sprintf("deployment %s landed %.0f minutes before the incident", nearest.Revision, nearestGap),
		Timestamp:   nearest.Timestamp,
		Source:      "deployment events",
	}}
	for _, event := range collection.Timeline {
		if strings.Contains(strings.ToLower(event.Description), "deploy") {
			evidence = append(evidence, models.Evidence{
				Type:        "timeline",
				Description: event.Description,
				Timestamp:   event.Timestamp,
				Source:      event.Source,
			})
		}
	}

	return models.PossibleCause{
		Type:        models.CauseCodeDeployment,
		Description: fmt.Sprintf("recent deployment %s to %s", nearest.Revision, incident.EntityID),
		Probability: deploymentCauseProbability,
		Evidence:    evidence,
		Impact:      models.SeverityHigh,
	}, true
}

// errorClusterCause fires on high-severity error clusters.
func errorClusterCause(collection models.IncidentDataCollection) (models.PossibleCause, bool) {
	var evidence []models.Evidence
	total := 0
	for _, event := range collection.ErrorEvents {
		if event.Severity != models.SeverityHigh && event.Severity != models.SeverityCritical {
			continue
		}
		total += event.Count
		evidence = append(evidence, models.Evidence{
			Type:        "error_cluster",
			Description: fmt.Sprintf("%s occurred %d times on %s", event.Class, event.Count, event.EntityID),
			Timestamp:   event.Timestamp,
			Source:      "error events",
		})
	}
	if len(evidence) == 0 {
		return models.PossibleCause{}, false
	}

	return models.PossibleCause{
		Type:        models.CauseErrorSurge,
		Description: fmt.Sprintf("high-severity error surge (%d occurrences)", total),
		Probability: errorClusterProbability,
		Evidence:    evidence,
		Impact:      models.SeverityHigh,
	}, true
}

// degradationCause fires when more than half of the performance snapshots are
// degraded (slow responses or elevated error rate).
func degradationCause(collection models.IncidentDataCollection) (models.PossibleCause, bool) {
	if len(collection.Snapshots) == 0 {
		return models.PossibleCause{}, false
	}
	degraded := 0
	var first, last time.Time
	for _, snapshot := range collection.Snapshots {
		if snapshot.ResponseTimeMs > degradedResponseTimeMs || snapshot.ErrorRate > degradedErrorRatePct {
			degraded++
			if first.IsZero() {
				first = snapshot.Timestamp
			}
			last = snapshot.Timestamp
		}
	}
	fraction := float64(degraded) / float64(len(collection.Snapshots))
	if fraction <= degradationSnapshotFraction {
		return models.PossibleCause{}, false
	}

	return models.PossibleCause{
		Type:        models.CausePerformanceRegression,
		Description: fmt.Sprintf("sustained degradation across %d of %d snapshots", degraded, len(collection.Snapshots)),
		Probability: degradationProbability,
		Evidence: []models.Evidence{{
			Type:        "performance",
			Description: fmt.Sprintf("degraded performance from %s to %s", first.Format(time.RFC3339), last.Format(time.RFC3339)),
			Timestamp:   first,
			Source:      "performance snapshots",
		}},
		Impact: models.SeverityMedium,
	}, true
}

func fallbackCause(incident models.Incident) models.PossibleCause {
	return models.PossibleCause{
		Type:        models.CausePerformanceRegression,
		Description: "no strong causal signal found for " + incident.ID,
		Probability: 0.2,
		Impact:      models.SeverityLow,
	}
}

// buildChain assembles the causal chain for the primary cause. Deployment
// causes extend through to user impact.
func buildChain(primary models.PossibleCause) []string {
	chain := []string{primary.Description, "performance degradation"}
	if primary.Type == models.CauseCodeDeployment {
		chain = append(chain, "user impact")
	}
	return chain
}

// rootCauseConfidence blends the primary probability with the evidence-chain
// depth, capped at rootCauseChainCap.
func rootCauseConfidence(primary models.PossibleCause) float64 {
	chainLen := float64(len(primary.Evidence))
	if chainLen > rootCauseChainCap {
		chainLen = rootCauseChainCap
	}
	return clamp(rootCauseProbabilityWeight*primary.Probability+rootCauseChainWeight*(chainLen/rootCauseChainCap), 0, 1)
}
