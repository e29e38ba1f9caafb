package engine

import (
	"testing"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

func criticalCollection(now time.Time) models.IncidentDataCollection {
	entities := make([]models.AffectedEntity, 5)
	for i := range entities {
		entities[i] = models.AffectedEntity{EntityID: "svc-" + string(rune('a'+i))}
	}
	return models.IncidentDataCollection{
		Incident: models.Incident{
			ID:       "inc-risk",
			Priority: models.PriorityCritical,
			EntityID: "svc-a",
			OpenedAt: now.Add(-3 * time.Hour),
		},
		Entities: entities,
		Snapshots: []models.PerformanceSnapshot{
			{Timestamp: now.Add(-time.Hour), EntityID: "svc-a", ErrorRate: 35, ResponseTimeMs: 4000},
		},
	}
}

func TestEscalationProbabilityClamped(t *testing.T) {
	assessor := NewRiskAssessor(nil)
	collection := criticalCollection(time.Now().UTC())

	business := assessor.BusinessImpact(collection)
	factors := assessor.RiskFactors(collection, business)
	probability := assessor.EscalationProbability(collection.Incident, factors)

	if probability > escalationCeiling || probability < escalationFloor {
		t.Fatalf("escalation probability outside [%.2f, %.2f]: %f", escalationFloor, escalationCeiling, probability)
	}
	if probability != escalationCeiling {
		t.Fatalf("expected worst case pinned at the ceiling, got %f", probability)
	}

	quiet := models.Incident{ID: "inc-quiet", Priority: models.PriorityInfo, OpenedAt: time.Now().Add(-5 * time.Minute)}
	if p := assessor.EscalationProbability(quiet, nil); p != escalationFloor {
		t.Fatalf("expected quiet incident at the floor, got %f", p)
	}
}

func TestHighErrorRateMeansSevereUserImpact(t *testing.T) {
	assessor := NewRiskAssessor(nil)
	collection := criticalCollection(time.Now().UTC())

	business := assessor.BusinessImpact(collection)
	if business.User != models.ImpactSevere {
		t.Fatalf("expected severe user impact for error rate above 20%%, got %s", business.User)
	}
	if business.Revenue != models.ImpactSevere {
		t.Fatalf("expected severe revenue impact for a 3 hour incident, got %s", business.Revenue)
	}
}

func TestRiskLevelIsMaxFactorSeverity(t *testing.T) {
	assessor := NewRiskAssessor(nil)
	collection := criticalCollection(time.Now().UTC())

	assessment := assessor.Assess(collection, models.PossibleCause{})
	if assessment.Level != models.SeverityCritical {
		t.Fatalf("expected critical risk level, got %s", assessment.Level)
	}
	if len(assessment.Factors) < 3 {
		t.Fatalf("expected critical severity, entity spread and duration factors, got %+v", assessment.Factors)
	}
}

func TestEstimateResolutionAdjustments(t *testing.T) {
	assessor := NewRiskAssessor(nil)
	now := time.Now().UTC()

	collection := models.IncidentDataCollection{
		Incident: models.Incident{ID: "inc-est", Priority: models.PriorityCritical, OpenedAt: now.Add(-10 * time.Minute)},
		Entities: []models.AffectedEntity{{EntityID: "a"}, {EntityID: "b"}},
	}

	base := assessor.EstimateResolution(collection, models.PossibleCause{})
	// 60m x2 critical + 2 x 15m per entity
	if base != 150*time.Minute {
		t.Fatalf("expected 150m estimate, got %s", base)
	}

	deploy := assessor.EstimateResolution(collection, models.PossibleCause{Type: models.CauseCodeDeployment})
	if deploy >= base {
		t.Fatalf("expected deployment cause to shorten the estimate: %s vs %s", deploy, base)
	}

	exhaustion := assessor.EstimateResolution(collection, models.PossibleCause{Type: models.CauseResourceExhaustion})
	if exhaustion <= base {
		t.Fatalf("expected resource exhaustion to lengthen the estimate: %s vs %s", exhaustion, base)
	}
}
