package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/faultlinestack/faultline/internal/cache"
	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/utils"
)

type stubClient struct {
	incident    models.Incident
	incidentErr error
	snapshots   []models.PerformanceSnapshot
	timelineErr error
	infraErr    error
	fetches     int
}

func (s *stubClient) GetIncident(ctx context.Context, id string) (models.Incident, error) {
	if s.incidentErr != nil {
		return models.Incident{}, s.incidentErr
	}
	return s.incident, nil
}

func (s *stubClient) FetchTimeline(ctx context.Context, incidentID string, w models.TimeWindow) ([]models.TimelineEvent, error) {
	s.fetches++
	if s.timelineErr != nil {
		return nil, s.timelineErr
	}
	return []models.TimelineEvent{{Timestamp: w.Start, Description: "threshold breached", Source: "alerting"}}, nil
}

func (s *stubClient) FetchEntityMetrics(ctx context.Context, entityID string, w models.TimeWindow) ([]models.AffectedEntity, error) {
	return []models.AffectedEntity{{EntityID: entityID}}, nil
}

func (s *stubClient) FetchPerformanceSnapshots(ctx context.Context, entityID string, w models.TimeWindow, interval time.Duration) ([]models.PerformanceSnapshot, error) {
	return s.snapshots, nil
}

func (s *stubClient) FetchErrorEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.ErrorEvent, error) {
	return nil, nil
}

func (s *stubClient) FetchDeploymentEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.DeploymentEvent, error) {
	return nil, nil
}

func (s *stubClient) FetchInfrastructureEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.InfrastructureEvent, error) {
	if s.infraErr != nil {
		return nil, s.infraErr
	}
	return nil, nil
}

func TestCollectWindowForClosedIncident(t *testing.T) {
	opened := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	closed := opened.Add(50 * time.Minute)
	client := &stubClient{incident: models.Incident{ID: "inc-1", EntityID: "svc", OpenedAt: opened, ClosedAt: closed}}

	c := New(nil, client, cache.NewMemoryProvider(), Options{})
	collection, err := c.Collect(context.Background(), "inc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !collection.Window.Start.Equal(opened.Add(-30 * time.Minute)) {
		t.Fatalf("window start wrong: %s", collection.Window.Start)
	}
	if !collection.Window.End.Equal(closed.Add(15 * time.Minute)) {
		t.Fatalf("window end wrong: %s", collection.Window.End)
	}
}

func TestCollectWindowForOpenIncidentUsesNow(t *testing.T) {
	opened := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &stubClient{incident: models.Incident{ID: "inc-1", EntityID: "svc", OpenedAt: opened}}

	c := New(nil, client, cache.NewMemoryProvider(), Options{})
	now := opened.Add(20 * time.Minute)
	c.now = func() time.Time { return now }

	collection, err := c.Collect(context.Background(), "inc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !collection.Window.End.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("open incident window end should track now, got %s", collection.Window.End)
	}
}

func TestCollectDegradesOnSubFetchFailure(t *testing.T) {
	opened := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &stubClient{
		incident:    models.Incident{ID: "inc-1", EntityID: "svc", OpenedAt: opened, ClosedAt: opened.Add(time.Hour)},
		timelineErr: errors.New("query timeout"),
		infraErr:    errors.New("query timeout"),
	}

	c := New(nil, client, cache.NewMemoryProvider(), Options{})
	collection, err := c.Collect(context.Background(), "inc-1")
	if err != nil {
		t.Fatalf("expected degraded collection, got error: %v", err)
	}
	if len(collection.Timeline) != 0 || len(collection.InfraEvents) != 0 {
		t.Fatalf("failed fetches should yield empty data")
	}
	if len(collection.Entities) != 1 {
		t.Fatalf("healthy fetches should still populate the collection")
	}
}

func TestCollectFailsWhenIncidentMissing(t *testing.T) {
	client := &stubClient{incidentErr: utils.ErrIncidentNotFound}
	c := New(nil, client, cache.NewMemoryProvider(), Options{})

	_, err := c.Collect(context.Background(), "inc-missing")
	if !errors.Is(err, utils.ErrIncidentNotFound) {
		t.Fatalf("expected incident-not-found, got %v", err)
	}
}

func TestCollectSortsSnapshots(t *testing.T) {
	opened := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &stubClient{
		incident: models.Incident{ID: "inc-1", EntityID: "svc", OpenedAt: opened, ClosedAt: opened.Add(time.Hour)},
		snapshots: []models.PerformanceSnapshot{
			{Timestamp: opened.Add(30 * time.Minute)},
			{Timestamp: opened},
			{Timestamp: opened.Add(10 * time.Minute)},
		},
	}

	c := New(nil, client, cache.NewMemoryProvider(), Options{})
	collection, err := c.Collect(context.Background(), "inc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(collection.Snapshots); i++ {
		if collection.Snapshots[i].Timestamp.Before(collection.Snapshots[i-1].Timestamp) {
			t.Fatalf("snapshots not sorted ascending")
		}
	}
}

func TestCollectServedFromCache(t *testing.T) {
	opened := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &stubClient{incident: models.Incident{ID: "inc-1", EntityID: "svc", OpenedAt: opened, ClosedAt: opened.Add(time.Hour)}}

	c := New(nil, client, cache.NewMemoryProvider(), Options{})
	if _, err := c.Collect(context.Background(), "inc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetches := client.fetches

	if _, err := c.Collect(context.Background(), "inc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.fetches != fetches {
		t.Fatalf("expected second collect served from cache")
	}
}
