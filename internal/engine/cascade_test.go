package engine

import (
	"testing"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

func cascadeCollection(now time.Time) models.IncidentDataCollection {
	return models.IncidentDataCollection{
		Incident: models.Incident{ID: "inc-cascade", EntityID: "svc-a", OpenedAt: now.Add(-time.Hour)},
		Entities: []models.AffectedEntity{
			{EntityID: "svc-a"},
			{EntityID: "svc-b"},
			{EntityID: "svc-c"},
		},
	}
}

func TestCascadeChainAndRecoveryOrder(t *testing.T) {
	analyzer := NewCascadeAnalyzer(nil)
	analysis := analyzer.Analyze(cascadeCollection(time.Now().UTC()))

	if analysis.PrimaryFailure != "svc-a" {
		t.Fatalf("expected svc-a as primary failure, got %s", analysis.PrimaryFailure)
	}
	if len(analysis.Chain) != 3 {
		t.Fatalf("expected chain length 3, got %d", len(analysis.Chain))
	}
	if len(analysis.Recovery) != len(analysis.Chain) {
		t.Fatalf("recovery step count %d does not match chain length %d", len(analysis.Recovery), len(analysis.Chain))
	}

	wantOrder := []string{"svc-c", "svc-b", "svc-a"}
	for i, step := range analysis.Recovery {
		if step.System != wantOrder[i] {
			t.Fatalf("recovery step %d: expected %s, got %s", i+1, wantOrder[i], step.System)
		}
		if step.Order != i+1 {
			t.Fatalf("recovery step %d has order %d", i+1, step.Order)
		}
	}

	if len(analysis.Recovery[0].DependsOn) != 0 {
		t.Fatalf("first recovery step should have no dependencies, got %v", analysis.Recovery[0].DependsOn)
	}
	if len(analysis.Recovery[2].DependsOn) != 1 || analysis.Recovery[2].DependsOn[0] != "svc-b" {
		t.Fatalf("third recovery step should depend on svc-b, got %v", analysis.Recovery[2].DependsOn)
	}
}

func TestCascadeChainDependencies(t *testing.T) {
	analyzer := NewCascadeAnalyzer(nil)
	analysis := analyzer.Analyze(cascadeCollection(time.Now().UTC()))

	if len(analysis.Chain[0].DependsOn) != 0 {
		t.Fatalf("primary failure should have no dependencies")
	}
	if analysis.Chain[1].DependsOn[0] != "svc-a" || analysis.Chain[2].DependsOn[0] != "svc-b" {
		t.Fatalf("chain dependencies wrong: %+v", analysis.Chain)
	}
}

func TestCascadeContainmentMentionsPrimary(t *testing.T) {
	analyzer := NewCascadeAnalyzer(nil)
	analysis := analyzer.Analyze(cascadeCollection(time.Now().UTC()))

	if len(analysis.Containment) < 2 {
		t.Fatalf("expected multi-system containment strategies, got %v", analysis.Containment)
	}
}

func TestCascadeEmptyCollection(t *testing.T) {
	analyzer := NewCascadeAnalyzer(nil)
	analysis := analyzer.Analyze(models.IncidentDataCollection{})
	if len(analysis.Chain) != 0 || len(analysis.Recovery) != 0 {
		t.Fatalf("expected empty analysis without entities, got %+v", analysis)
	}
}

func TestIdentifyFailurePoints(t *testing.T) {
	analyzer := NewCascadeAnalyzer(nil)
	now := time.Now().UTC()
	collection := models.IncidentDataCollection{
		Incident: models.Incident{ID: "inc-fp", EntityID: "svc-a", OpenedAt: now.Add(-30 * time.Minute)},
		Snapshots: []models.PerformanceSnapshot{
			{Timestamp: now.Add(-20 * time.Minute), EntityID: "svc-a", CPUPercent: 92},
			{Timestamp: now.Add(-10 * time.Minute), EntityID: "svc-b", ErrorRate: 15},
		},
		InfraEvents: []models.InfrastructureEvent{
			{Timestamp: now.Add(-5 * time.Minute), EntityID: "host-1", Kind: "disk_full", Severity: models.SeverityCritical},
		},
	}

	points := analyzer.IdentifyFailurePoints(collection)
	if len(points) != 3 {
		t.Fatalf("expected three failure points, got %v", points)
	}
}
