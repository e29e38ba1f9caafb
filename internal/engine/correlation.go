package engine

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/utils"
)

// Correlator scores temporal relatedness between an incident and nearby
// change events, and similarity between incidents.
type Correlator struct {
	logger *slog.Logger
}

// NewCorrelator constructs a Correlator.
func NewCorrelator(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{logger: logger}
}

// CorrelateEvents scores every deployment and infrastructure event in the
// collection against the incident open time and returns the ones above the
// reporting threshold, sorted by descending correlation.
func (c *Correlator) CorrelateEvents(collection models.IncidentDataCollection) []models.CorrelatedEvent {
	incident := collection.Incident
	var events []models.CorrelatedEvent

	for _, deploy := range collection.Deployments {
		event := c.scoreDeployment(incident, deploy)
		if event.Correlation > correlationReportThreshold {
			events = append(events, event)
		}
	}
	for _, infra := range collection.InfraEvents {
		event := c.scoreInfrastructure(incident, infra)
		if event.Correlation > correlationReportThreshold {
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Correlation > events[j].Correlation
	})
	return events
}

func (c *Correlator) scoreDeployment(incident models.Incident, deploy models.DeploymentEvent) models.CorrelatedEvent {
	score := EventCorrelation(incident.OpenedAt, deploy.Timestamp, models.EventDeployment)
	if deploy.EntityID != "" && deploy.EntityID == incident.EntityID {
		score = clamp(score*sameEntityDeployBoost, 0, 1)
	}
	gap := utils.DurationMinutes(deploy.Timestamp, incident.OpenedAt)
	event := models.CorrelatedEvent{
		Type:           models.EventDeployment,
		Timestamp:      deploy.Timestamp,
		EntityID:       deploy.EntityID,
		Description:    deploymentLabel(deploy),
		Correlation:    score,
		TimeGapMinutes: gap,
	}
	event.Impact = deploymentTier(gap, score)
	return event
}

func (c *Correlator) scoreInfrastructure(incident models.Incident, infra models.InfrastructureEvent) models.CorrelatedEvent {
	score := EventCorrelation(incident.OpenedAt, infra.Timestamp, models.EventInfrastructure)
	gap := utils.DurationMinutes(infra.Timestamp, incident.OpenedAt)
	event := models.CorrelatedEvent{
		Type:           models.EventInfrastructure,
		Timestamp:      infra.Timestamp,
		EntityID:       infra.EntityID,
		Description:    infra.Kind + ": " + infra.Description,
		Correlation:    score,
		TimeGapMinutes: gap,
	}
	event.Impact = infrastructureTier(gap, infra.Severity, score)
	return event
}

// EventCorrelation scores how related an event at eventTime is to an incident
// opened at incidentTime. The score decays linearly inside the event type's
// window and is zero outside it, scaled by the type's causal multiplier and
// clamped to [0,1].
func EventCorrelation(incidentTime, eventTime time.Time, eventType models.EventType) float64 {
	rule, ok := correlationRules[eventType]
	if !ok || rule.Window <= 0 {
		return 0
	}
	gap := utils.DurationMinutes(eventTime, incidentTime)
	base := 1 - gap/rule.Window.Minutes()
	if base < 0 {
		base = 0
	}
	return clamp(base*rule.Multiplier, 0, 1)
}

func deploymentTier(gapMinutes, correlation float64) models.CausalTier {
	for _, rule := range deploymentTierRules {
		if gapMinutes < rule.MaxGap.Minutes() && correlation > rule.MinCorrelation {
			return rule.Tier
		}
	}
	return models.TierCoincidental
}

func infrastructureTier(gapMinutes float64, severity models.Severity, correlation float64) models.CausalTier {
	if gapMinutes < infraDirectCauseGap.Minutes() && severity == infraDirectCauseSeverity {
		return models.TierDirectCause
	}
	return deploymentTier(gapMinutes, correlation)
}

func deploymentLabel(deploy models.DeploymentEvent) string {
	label := "deployment " + deploy.Revision
	if deploy.Description != "" {
		label += ": " + deploy.Description
	}
	return label
}

// SimilarIncidents scores the incident against a historical candidate set and
// returns the ones above the similarity threshold, best first, capped at
// similarityMaxResults. Candidates outside the history window are skipped.
func (c *Correlator) SimilarIncidents(incident models.Incident, history []models.Incident, now time.Time) []models.SimilarIncident {
	cutoff := now.AddDate(0, 0, -similarityHistoryDays)
	var similar []models.SimilarIncident

	for _, candidate := range history {
		if candidate.ID == incident.ID {
			continue
		}
		if candidate.OpenedAt.Before(cutoff) {
			continue
		}
		score := IncidentSimilarity(incident, candidate)
		if score > similarityThreshold {
			similar = append(similar, models.SimilarIncident{Incident: candidate, Score: score})
		}
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Score > similar[j].Score
	})
	if len(similar) > similarityMaxResults {
		similar = similar[:similarityMaxResults]
	}
	return similar
}

// IncidentSimilarity is the weighted pairwise score between two incidents.
func IncidentSimilarity(a, b models.Incident) float64 {
	score := 0.0
	if a.EntityID != "" && a.EntityID == b.EntityID {
		score += similarityEntityWeight
	}
	if a.ConditionID != "" && a.ConditionID == b.ConditionID {
		score += similarityConditionWeight
	}
	if a.PolicyID != "" && a.PolicyID == b.PolicyID {
		score += similarityPolicyWeight
	}
	if hourOfDayGap(a.OpenedAt, b.OpenedAt) <= similarityHourTolerance {
		score += similarityHourWeight
	}
	return score
}

// hourOfDayGap measures how far apart two timestamps fall within a day,
// wrapping around midnight.
func hourOfDayGap(a, b time.Time) time.Duration {
	gap := math.Abs(utils.MinutesOfDay(a) - utils.MinutesOfDay(b))
	if wrapped := 24*60 - gap; wrapped < gap {
		gap = wrapped
	}
	return time.Duration(gap * float64(time.Minute))
}
