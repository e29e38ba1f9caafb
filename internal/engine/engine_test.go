package engine

import (
	"context"
	"testing"
	"time"

	"github.com/faultlinestack/faultline/internal/cache"
	"github.com/faultlinestack/faultline/internal/collector"
	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/patterns"
	"github.com/faultlinestack/faultline/internal/telemetry"
)

type fakeSignalClient struct {
	incident       models.Incident
	history        []models.Incident
	snapshots      []models.PerformanceSnapshot
	deployments    []models.DeploymentEvent
	entities       []models.AffectedEntity
	getCalls       int
	incidentErrors map[string]error
}

func (f *fakeSignalClient) GetIncident(ctx context.Context, id string) (models.Incident, error) {
	f.getCalls++
	if err, ok := f.incidentErrors[id]; ok {
		return models.Incident{}, err
	}
	return f.incident, nil
}

func (f *fakeSignalClient) ListIncidents(ctx context.Context, filter telemetry.IncidentFilter) ([]models.Incident, error) {
	return f.history, nil
}

func (f *fakeSignalClient) FetchTimeline(ctx context.Context, incidentID string, w models.TimeWindow) ([]models.TimelineEvent, error) {
	return nil, nil
}

func (f *fakeSignalClient) FetchEntityMetrics(ctx context.Context, entityID string, w models.TimeWindow) ([]models.AffectedEntity, error) {
	return f.entities, nil
}

func (f *fakeSignalClient) FetchPerformanceSnapshots(ctx context.Context, entityID string, w models.TimeWindow, interval time.Duration) ([]models.PerformanceSnapshot, error) {
	return f.snapshots, nil
}

func (f *fakeSignalClient) FetchErrorEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.ErrorEvent, error) {
	return nil, nil
}

func (f *fakeSignalClient) FetchDeploymentEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.DeploymentEvent, error) {
	return f.deployments, nil
}

func (f *fakeSignalClient) FetchInfrastructureEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.InfrastructureEvent, error) {
	return nil, nil
}

func newTestEngine(client *fakeSignalClient) (*Engine, *patterns.Registry) {
	provider := cache.NewMemoryProvider()
	dataCollector := collector.New(nil, client, provider, collector.Options{})
	registry := patterns.NewRegistry()
	return New(nil, client, provider, dataCollector, registry, TTLs{}), registry
}

func saturatedClient(now time.Time) *fakeSignalClient {
	return &fakeSignalClient{
		incident: models.Incident{
			ID:       "inc-1",
			Title:    "API latency",
			Priority: models.PriorityCritical,
			EntityID: "svc-api",
			OpenedAt: now.Add(-45 * time.Minute),
		},
		snapshots: []models.PerformanceSnapshot{
			{Timestamp: now.Add(-40 * time.Minute), EntityID: "svc-api", CPUPercent: 96, MemoryPercent: 94, ResponseTimeMs: 2200, ErrorRate: 2},
			{Timestamp: now.Add(-20 * time.Minute), EntityID: "svc-api", CPUPercent: 97, MemoryPercent: 95, ResponseTimeMs: 2400, ErrorRate: 3},
		},
		deployments: []models.DeploymentEvent{
			{Timestamp: now.Add(-55 * time.Minute), EntityID: "svc-api", Revision: "v19"},
		},
	}
}

func TestAnalyzeIncidentProducesResult(t *testing.T) {
	now := time.Now().UTC()
	engine, _ := newTestEngine(saturatedClient(now))

	result, err := engine.AnalyzeIncident(context.Background(), "inc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AnalysisID == "" {
		t.Fatalf("expected analysis id")
	}
	if len(result.Patterns) == 0 {
		t.Fatalf("expected detected patterns for saturated snapshots")
	}
	if result.RootCause.PrimaryCause.Type != models.CauseCodeDeployment {
		t.Fatalf("expected deployment as primary cause, got %s", result.RootCause.PrimaryCause.Type)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", result.Confidence)
	}
	if len(result.Recommendations) == 0 {
		t.Fatalf("expected recommendations")
	}
}

func TestAnalyzeIncidentServedFromCache(t *testing.T) {
	now := time.Now().UTC()
	client := saturatedClient(now)
	engine, _ := newTestEngine(client)

	first, err := engine.AnalyzeIncident(context.Background(), "inc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := client.getCalls

	second, err := engine.AnalyzeIncident(context.Background(), "inc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.getCalls != calls {
		t.Fatalf("expected cached analysis, client was called again")
	}
	if second.AnalysisID != first.AnalysisID {
		t.Fatalf("cached analysis should be identical")
	}
}

func TestLearnFromIncidentIncrementsFrequencyByTwo(t *testing.T) {
	now := time.Now().UTC()
	engine, registry := newTestEngine(saturatedClient(now))
	resolution := models.Resolution{RootCause: "undersized nodes", FixApplied: "scaled up", ResolvedAt: now}

	if err := engine.LearnFromIncident(context.Background(), "inc-1", resolution); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.LearnFromIncident(context.Background(), "inc-1", resolution); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pattern, ok := registry.Get("resource-exhaustion")
	if !ok {
		t.Fatalf("pattern missing")
	}
	if pattern.Frequency != 2 {
		t.Fatalf("expected frequency incremented by exactly 2, got %d", pattern.Frequency)
	}
	if len(pattern.History) > models.MaxPatternHistory {
		t.Fatalf("history exceeds cap: %d", len(pattern.History))
	}
	for i := 1; i < len(pattern.History); i++ {
		if pattern.History[i].Timestamp.After(pattern.History[i-1].Timestamp) {
			t.Fatalf("history not newest first")
		}
	}
}

func TestFindSimilarIncidents(t *testing.T) {
	now := time.Now().UTC()
	client := saturatedClient(now)
	client.incident.ConditionID = "cond-1"
	client.incident.PolicyID = "pol-1"
	client.history = []models.Incident{
		{ID: "inc-old", EntityID: "svc-api", ConditionID: "cond-1", PolicyID: "pol-1", OpenedAt: now.AddDate(0, 0, -3).Add(-45 * time.Minute)},
		{ID: "inc-unrelated", EntityID: "svc-api", ConditionID: "x", PolicyID: "y", OpenedAt: now.AddDate(0, 0, -2).Add(-10 * time.Hour)},
	}
	engine, _ := newTestEngine(client)

	similar, err := engine.FindSimilarIncidents(context.Background(), client.incident)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(similar) != 1 || similar[0].Incident.ID != "inc-old" {
		t.Fatalf("expected only inc-old, got %+v", similar)
	}
}

func TestAnalyzeErrorPatternsAggregatesByClass(t *testing.T) {
	now := time.Now().UTC()
	events := []models.ErrorEvent{
		{Timestamp: now.Add(-10 * time.Minute), EntityID: "svc-a", Class: "TimeoutError", Count: 5, Severity: models.SeverityMedium},
		{Timestamp: now.Add(-5 * time.Minute), EntityID: "svc-b", Class: "TimeoutError", Count: 12, Severity: models.SeverityHigh},
		{Timestamp: now.Add(-8 * time.Minute), EntityID: "svc-a", Class: "NullPointer", Count: 2, Severity: models.SeverityLow},
	}

	summaries := AnalyzeErrorPatterns(events)
	if len(summaries) != 2 {
		t.Fatalf("expected two classes, got %d", len(summaries))
	}
	top := summaries[0]
	if top.Class != "TimeoutError" || top.Count != 17 {
		t.Fatalf("expected TimeoutError with count 17 first, got %+v", top)
	}
	if top.Severity != models.SeverityHigh {
		t.Fatalf("expected max severity high, got %s", top.Severity)
	}
	if len(top.Entities) != 2 {
		t.Fatalf("expected two entities, got %v", top.Entities)
	}
	if !top.FirstSeen.Before(top.LastSeen) {
		t.Fatalf("first/last seen wrong: %s vs %s", top.FirstSeen, top.LastSeen)
	}
}

func TestDetectAnomaliesByEntity(t *testing.T) {
	now := time.Now().UTC()
	series := make([]models.MetricPoint, 20)
	for i := range series {
		series[i] = models.MetricPoint{Timestamp: now.Add(time.Duration(i) * time.Minute), Value: 100}
	}
	series[10].Value = 700

	client := saturatedClient(now)
	client.entities = []models.AffectedEntity{
		{EntityID: "svc-api", Metrics: map[string][]models.MetricPoint{"response_time": series}},
	}
	engine, _ := newTestEngine(client)

	anomalies, err := engine.DetectAnomalies(context.Background(), "svc-api", models.TimeWindow{Start: now, End: now.Add(20 * time.Minute)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(anomalies) != 1 {
		t.Fatalf("expected one anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Metric != "response_time" || anomalies[0].Direction != models.AnomalySpike {
		t.Fatalf("unexpected anomaly: %+v", anomalies[0])
	}
}
