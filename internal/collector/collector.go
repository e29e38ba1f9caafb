package collector

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/faultlinestack/faultline/internal/cache"
	"github.com/faultlinestack/faultline/internal/metrics"
	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/utils"
)

// SignalClient defines the telemetry platform operations used by the collector.
type SignalClient interface {
	GetIncident(ctx context.Context, id string) (models.Incident, error)
	FetchTimeline(ctx context.Context, incidentID string, w models.TimeWindow) ([]models.TimelineEvent, error)
	FetchEntityMetrics(ctx context.Context, entityID string, w models.TimeWindow) ([]models.AffectedEntity, error)
	FetchPerformanceSnapshots(ctx context.Context, entityID string, w models.TimeWindow, interval time.Duration) ([]models.PerformanceSnapshot, error)
	FetchErrorEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.ErrorEvent, error)
	FetchDeploymentEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.DeploymentEvent, error)
	FetchInfrastructureEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.InfrastructureEvent, error)
}

// Options tunes the collection window geometry and caching.
type Options struct {
	WindowBefore     time.Duration
	WindowAfter      time.Duration
	SnapshotInterval time.Duration
	CollectionTTL    time.Duration
}

func (o *Options) normalise() {
	if o.WindowBefore <= 0 {
		o.WindowBefore = 30 * time.Minute
	}
	if o.WindowAfter <= 0 {
		o.WindowAfter = 15 * time.Minute
	}
	if o.SnapshotInterval <= 0 {
		o.SnapshotInterval = 5 * time.Minute
	}
	if o.CollectionTTL <= 0 {
		o.CollectionTTL = 10 * time.Minute
	}
}

// Collector assembles the telemetry context around one incident.
type Collector struct {
	logger *slog.Logger
	client SignalClient
	cache  cache.Provider
	opts   Options
	now    func() time.Time
}

// New constructs a Collector.
func New(logger *slog.Logger, client SignalClient, cacheProvider cache.Provider, opts Options) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	opts.normalise()
	return &Collector{
		logger: logger,
		client: client,
		cache:  cacheProvider,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CacheKey returns the cache key for one incident's collection.
func CacheKey(incidentID string) string {
	return "incident:data:" + incidentID
}

// Collect resolves the incident and gathers a time-windowed telemetry
// collection around it. The five sub-fetches run concurrently; a failure in
// any one is logged as a warning and replaced with an empty result, so
// partial data is preferred over total failure. Collect fails only when the
// incident itself cannot be resolved.
func (c *Collector) Collect(ctx context.Context, incidentID string) (models.IncidentDataCollection, error) {
	if cached, ok := c.fromCache(ctx, incidentID); ok {
		return cached, nil
	}

	incident, err := c.client.GetIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, utils.ErrIncidentNotFound) {
			return models.IncidentDataCollection{}, err
		}
		return models.IncidentDataCollection{}, utils.StageError("collector", incidentID, err)
	}

	window := c.Window(incident)
	collection := models.IncidentDataCollection{
		Incident:    incident,
		Window:      window,
		CollectedAt: c.now(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		timeline, err := c.client.FetchTimeline(gctx, incident.ID, window)
		if err != nil {
			c.warn("timeline", incident.ID, err)
			return nil
		}
		collection.Timeline = timeline
		return nil
	})
	g.Go(func() error {
		entities, err := c.client.FetchEntityMetrics(gctx, incident.EntityID, window)
		if err != nil {
			c.warn("entity metrics", incident.ID, err)
			return nil
		}
		collection.Entities = entities
		return nil
	})
	g.Go(func() error {
		snapshots, err := c.client.FetchPerformanceSnapshots(gctx, incident.EntityID, window, c.opts.SnapshotInterval)
		if err != nil {
			c.warn("performance snapshots", incident.ID, err)
			return nil
		}
		collection.Snapshots = snapshots
		return nil
	})
	g.Go(func() error {
		errorEvents, err := c.client.FetchErrorEvents(gctx, incident.EntityID, window)
		if err != nil {
			c.warn("error events", incident.ID, err)
			return nil
		}
		collection.ErrorEvents = errorEvents
		return nil
	})
	g.Go(func() error {
		deployments, err := c.client.FetchDeploymentEvents(gctx, incident.EntityID, window)
		if err != nil {
			c.warn("deployment events", incident.ID, err)
		} else {
			collection.Deployments = deployments
		}
		infra, err := c.client.FetchInfrastructureEvents(gctx, incident.EntityID, window)
		if err != nil {
			c.warn("infrastructure events", incident.ID, err)
			return nil
		}
		collection.InfraEvents = infra
		return nil
	})

	// Sub-fetches never return errors; Wait is the fan-in point.
	_ = g.Wait()

	// Snapshot ordering is an invariant for every downstream consumer.
	sort.SliceStable(collection.Snapshots, func(i, j int) bool {
		return collection.Snapshots[i].Timestamp.Before(collection.Snapshots[j].Timestamp)
	})

	c.store(ctx, incidentID, collection)
	return collection, nil
}

// Window derives the collection window: WindowBefore ahead of the open time
// through WindowAfter past the close time, using now for open incidents.
func (c *Collector) Window(incident models.Incident) models.TimeWindow {
	end := incident.ClosedAt
	if end.IsZero() {
		end = c.now()
	}
	return models.TimeWindow{
		Start: incident.OpenedAt.Add(-c.opts.WindowBefore),
		End:   end.Add(c.opts.WindowAfter),
	}
}

func (c *Collector) fromCache(ctx context.Context, incidentID string) (models.IncidentDataCollection, bool) {
	payload, err := c.cache.Get(ctx, CacheKey(incidentID))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("collection cache read failed", slog.Any("error", err))
		}
		metrics.ObserveCache(metrics.CacheMiss)
		return models.IncidentDataCollection{}, false
	}

	var collection models.IncidentDataCollection
	if err := json.Unmarshal(payload, &collection); err != nil {
		c.logger.Warn("collection cache entry corrupt", slog.String("incident_id", incidentID), slog.Any("error", err))
		return models.IncidentDataCollection{}, false
	}
	metrics.ObserveCache(metrics.CacheHit)
	return collection, true
}

func (c *Collector) store(ctx context.Context, incidentID string, collection models.IncidentDataCollection) {
	payload, err := json.Marshal(collection)
	if err != nil {
		c.logger.Warn("collection marshal failed", slog.String("incident_id", incidentID), slog.Any("error", err))
		return
	}
	if err := c.cache.Set(ctx, CacheKey(incidentID), payload, c.opts.CollectionTTL); err != nil {
		c.logger.Warn("collection cache write failed", slog.Any("error", err))
		return
	}
	metrics.ObserveCache(metrics.CacheWrite)
}

func (c *Collector) warn(fetch, incidentID string, err error) {
	c.logger.Warn("sub-fetch failed, continuing with empty data",
		slog.String("fetch", fetch),
		slog.String("incident_id", incidentID),
		slog.Any("error", err),
	)
}
