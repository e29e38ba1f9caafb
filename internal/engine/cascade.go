package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

// CascadeAnalyzer orders affected systems into a failure chain and derives
// containment and recovery plans. The chain is a linear model derived from
// entity order; no real service topology is available upstream.
type CascadeAnalyzer struct {
	logger *slog.Logger
}

// NewCascadeAnalyzer constructs a CascadeAnalyzer.
func NewCascadeAnalyzer(logger *slog.Logger) *CascadeAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CascadeAnalyzer{logger: logger}
}

// Analyze builds the cascade picture for the collection. Returns the zero
// value when no affected entities are known.
func (a *CascadeAnalyzer) Analyze(collection models.IncidentDataCollection) models.CascadeAnalysis {
	systems := affectedSystems(collection)
	if len(systems) == 0 {
		return models.CascadeAnalysis{}
	}

	chain := a.BuildChain(collection.Incident, systems)
	return models.CascadeAnalysis{
		PrimaryFailure:  systems[0],
		Chain:           chain,
		AffectedSystems: systems,
		Containment:     containmentStrategies(systems),
		Recovery:        a.RecoveryPlan(chain),
	}
}

// BuildChain orders the affected systems into a linear failure chain. The
// first system is the primary failure; each later system depends on its
// predecessor.
func (a *CascadeAnalyzer) BuildChain(incident models.Incident, systems []string) []models.CascadeStep {
	chain := make([]models.CascadeStep, 0, len(systems))
	for i, system := range systems {
		step := models.CascadeStep{
			System:    system,
			Timestamp: incident.OpenedAt.Add(time.Duration(i) * time.Minute),
		}
		if i == 0 {
			step.FailureMode = "primary failure"
			step.Impact = models.SeverityCritical
		} else {
			step.FailureMode = "degraded by upstream dependency"
			step.Impact = models.SeverityHigh
			step.DependsOn = []string{systems[i-1]}
		}
		chain = append(chain, step)
	}
	return chain
}

// RecoveryPlan reverses the cascade order so the most-downstream system is
// restored first. Step count always matches the chain length.
func (a *CascadeAnalyzer) RecoveryPlan(chain []models.CascadeStep) []models.RecoveryStep {
	plan := make([]models.RecoveryStep, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		step := models.RecoveryStep{
			Order:    len(chain) - i,
			System:   chain[i].System,
			Action:   "restore " + chain[i].System + " and verify health checks",
			Estimate: recoveryStepEstimate,
			Rollback: "revert " + chain[i].System + " to its last known good state",
		}
		if len(plan) > 0 {
			step.DependsOn = []string{plan[len(plan)-1].System}
		}
		plan = append(plan, step)
	}
	return plan
}

// IdentifyFailurePoints lists the systems most likely to fail next, reading
// pressure signals from the latest snapshots.
func (a *CascadeAnalyzer) IdentifyFailurePoints(collection models.IncidentDataCollection) []string {
	seen := make(map[string]bool)
	var points []string
	add := func(system, reason string) {
		if system == "" || seen[system] {
			return
		}
		seen[system] = true
		points = append(points, fmt.Sprintf("%s (%s)", system, reason))
	}

	for _, snapshot := range collection.Snapshots {
		if snapshot.CPUPercent > 85 {
			add(snapshot.EntityID, "cpu saturation")
		}
		if snapshot.MemoryPercent > 85 {
			add(snapshot.EntityID, "memory pressure")
		}
		if snapshot.ErrorRate > significantErrorRatePct {
			add(snapshot.EntityID, "elevated error rate")
		}
	}
	for _, event := range collection.InfraEvents {
		if event.Severity == models.SeverityCritical {
			add(event.EntityID, "critical infrastructure event")
		}
	}
	return points
}

func containmentStrategies(systems []string) []string {
	strategies := []string{"isolate " + systems[0] + " from new traffic"}
	if len(systems) > 1 {
		strategies = append(strategies,
			"enable circuit breakers on services depending on "+systems[0],
			"scale out healthy instances of downstream services",
		)
	}
	return strategies
}

// affectedSystems prefers the entity list and falls back to the incident's
// own entity.
func affectedSystems(collection models.IncidentDataCollection) []string {
	if len(collection.Entities) > 0 {
		systems := make([]string, 0, len(collection.Entities))
		for _, entity := range collection.Entities {
			systems = append(systems, entity.EntityID)
		}
		return systems
	}
	if collection.Incident.EntityID != "" {
		return []string{collection.Incident.EntityID}
	}
	return nil
}
