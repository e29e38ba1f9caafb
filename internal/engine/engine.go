package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/faultlinestack/faultline/internal/cache"
	"github.com/faultlinestack/faultline/internal/collector"
	"github.com/faultlinestack/faultline/internal/detect"
	"github.com/faultlinestack/faultline/internal/metrics"
	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/patterns"
	"github.com/faultlinestack/faultline/internal/telemetry"
	"github.com/faultlinestack/faultline/internal/utils"
)

// SignalClient is the telemetry surface the engine depends on.
type SignalClient interface {
	collector.SignalClient
	ListIncidents(ctx context.Context, filter telemetry.IncidentFilter) ([]models.Incident, error)
}

// TTLs tunes the per-stage result caches.
type TTLs struct {
	Analysis time.Duration
	Patterns time.Duration
	Similar  time.Duration
}

func (t *TTLs) normalise() {
	if t.Analysis <= 0 {
		t.Analysis = 30 * time.Minute
	}
	if t.Patterns <= 0 {
		t.Patterns = 15 * time.Minute
	}
	if t.Similar <= 0 {
		t.Similar = 60 * time.Minute
	}
}

// Engine orchestrates the analysis stages for one incident at a time. It is
// stateless per call; the fault-pattern registry is the only long-lived
// mutable state and is owned by the patterns package.
type Engine struct {
	logger      *slog.Logger
	client      SignalClient
	cache       cache.Provider
	collector   *collector.Collector
	detector    *detect.Detector
	registry    *patterns.Registry
	matcher     *patterns.Matcher
	correlator  *Correlator
	causes      *CauseRanker
	risk        *RiskAssessor
	cascade     *CascadeAnalyzer
	recommender *Recommender
	latency     *utils.LatencyTracker
	ttls        TTLs
	now         func() time.Time
}

// New wires the engine together.
func New(logger *slog.Logger, client SignalClient, cacheProvider cache.Provider, dataCollector *collector.Collector, registry *patterns.Registry, ttls TTLs) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	ttls.normalise()
	return &Engine{
		logger:      logger,
		client:      client,
		cache:       cacheProvider,
		collector:   dataCollector,
		detector:    detect.NewDetector(),
		registry:    registry,
		matcher:     patterns.NewMatcher(registry),
		correlator:  NewCorrelator(logger),
		causes:      NewCauseRanker(logger),
		risk:        NewRiskAssessor(logger),
		cascade:     NewCascadeAnalyzer(logger),
		recommender: NewRecommender(logger),
		latency:     utils.NewLatencyTracker(1024),
		ttls:        ttls,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Registry exposes the fault-pattern registry for learning operations.
func (e *Engine) Registry() *patterns.Registry {
	return e.registry
}

// AnalysisLatency reports the given analysis latency percentile.
func (e *Engine) AnalysisLatency(p float64) time.Duration {
	return e.latency.Percentile(p)
}

func analysisCacheKey(incidentID string) string {
	return "incident:analysis:" + incidentID
}

func patternsCacheKey(incidentID string) string {
	return "incident:patterns:" + incidentID
}

func similarCacheKey(incidentID string) string {
	return "incident:similar:" + incidentID
}

// AnalyzeIncident runs the full pipeline for one incident id, serving a
// cached result when a fresh one exists.
func (e *Engine) AnalyzeIncident(ctx context.Context, incidentID string) (models.AnalysisResult, error) {
	var cached models.AnalysisResult
	if e.readCached(ctx, analysisCacheKey(incidentID), &cached) {
		return cached, nil
	}

	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	result, err := e.PerformComprehensiveAnalysis(ctx, collection)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	e.writeCached(ctx, analysisCacheKey(incidentID), result, e.ttls.Analysis)
	return result, nil
}

// PerformComprehensiveAnalysis runs pattern detection, anomaly detection,
// event correlation and the base risk assessment concurrently over one
// collection, then sequentially derives the root cause, error patterns and
// recommendations from the joined results.
func (e *Engine) PerformComprehensiveAnalysis(ctx context.Context, collection models.IncidentDataCollection) (models.AnalysisResult, error) {
	started := e.now()
	result := models.AnalysisResult{
		AnalysisID: uuid.NewString(),
		Incident:   collection.Incident,
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Patterns = e.matcher.Detect(collection)
		return nil
	})
	g.Go(func() error {
		result.Anomalies = e.detectCollectionAnomalies(collection)
		return nil
	})
	g.Go(func() error {
		result.CorrelatedEvents = e.correlator.CorrelateEvents(collection)
		return nil
	})
	g.Go(func() error {
		result.Risk = e.risk.Assess(collection, models.PossibleCause{})
		return nil
	})
	if err := g.Wait(); err != nil {
		metrics.ObserveAnalysis(time.Since(started), metrics.OutcomeError)
		return models.AnalysisResult{}, utils.StageError("analysis", collection.Incident.ID, err)
	}

	result.RootCause = e.causes.Analyze(collection)
	result.Risk.EstimatedResolution = e.risk.EstimateResolution(collection, result.RootCause.PrimaryCause)
	result.ErrorPatterns = AnalyzeErrorPatterns(collection.ErrorEvents)
	result.Recommendations = e.recommender.Recommend(result)
	result.Confidence = aggregateConfidence(result)
	result.GeneratedAt = e.now()

	elapsed := time.Since(started)
	e.latency.Observe(elapsed)
	metrics.ObserveAnalysis(elapsed, metrics.OutcomeSuccess)
	utils.LogIncidentAnalysis(e.logger, collection.Incident.ID, result.Confidence, len(result.Patterns), len(result.Anomalies))
	return result, nil
}

// PerformRootCauseAnalysis collects data for the incident and builds the
// causal chain.
func (e *Engine) PerformRootCauseAnalysis(ctx context.Context, incidentID string) (models.RootCauseAnalysis, error) {
	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return models.RootCauseAnalysis{}, err
	}
	return e.causes.Analyze(collection), nil
}

// GenerateRecommendations derives remediation entries from a finished
// analysis.
func (e *Engine) GenerateRecommendations(result models.AnalysisResult) []models.Recommendation {
	return e.recommender.Recommend(result)
}

// GenerateActionPlan regroups recommendations into execution buckets.
func (e *Engine) GenerateActionPlan(result models.AnalysisResult) models.ActionPlan {
	return e.recommender.BuildActionPlan(result)
}

// CreateIncidentReport assembles the full presentation-ready report for one
// incident.
func (e *Engine) CreateIncidentReport(ctx context.Context, incidentID string) (models.IncidentReport, error) {
	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return models.IncidentReport{}, err
	}
	analysis, err := e.PerformComprehensiveAnalysis(ctx, collection)
	if err != nil {
		return models.IncidentReport{}, err
	}
	similar, err := e.FindSimilarIncidents(ctx, collection.Incident)
	if err != nil {
		e.logger.Warn("similar-incident lookup failed", slog.String("incident_id", incidentID), slog.Any("error", err))
	}

	report := models.IncidentReport{
		Incident:    collection.Incident,
		Analysis:    analysis,
		Cascade:     e.cascade.Analyze(collection),
		Similar:     similar,
		Plan:        e.recommender.BuildActionPlan(analysis),
		GeneratedAt: e.now(),
	}
	report.Summary = reportSummary(report)
	return report, nil
}

// DetectAnomalies examines every metric series of the entity inside the
// window and returns statistically unusual points.
func (e *Engine) DetectAnomalies(ctx context.Context, entityID string, window models.TimeWindow) ([]models.Anomaly, error) {
	entities, err := e.client.FetchEntityMetrics(ctx, entityID, window)
	if err != nil {
		return nil, utils.StageError("anomaly detection", entityID, err)
	}

	var anomalies []models.Anomaly
	for _, entity := range entities {
		for metric, series := range entity.Metrics {
			anomalies = append(anomalies, e.detector.Detect(series, metric, entity.EntityID)...)
		}
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Deviation > anomalies[j].Deviation
	})
	return anomalies, nil
}

// FindSimilarIncidents scores the incident against its entity's recent
// history.
func (e *Engine) FindSimilarIncidents(ctx context.Context, incident models.Incident) ([]models.SimilarIncident, error) {
	var cached []models.SimilarIncident
	if e.readCached(ctx, similarCacheKey(incident.ID), &cached) {
		return cached, nil
	}

	now := e.now()
	history, err := e.client.ListIncidents(ctx, telemetry.IncidentFilter{
		EntityID: incident.EntityID,
		Since:    now.AddDate(0, 0, -similarityHistoryDays),
		Until:    now,
	})
	if err != nil {
		return nil, utils.StageError("similarity", incident.ID, err)
	}

	similar := e.correlator.SimilarIncidents(incident, history, now)
	e.writeCached(ctx, similarCacheKey(incident.ID), similar, e.ttls.Similar)
	return similar, nil
}

// FindSimilarIncidentsByID resolves the incident first, for callers that only
// hold an id.
func (e *Engine) FindSimilarIncidentsByID(ctx context.Context, incidentID string) ([]models.SimilarIncident, error) {
	incident, err := e.client.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	return e.FindSimilarIncidents(ctx, incident)
}

// FindCorrelatedEvents scores nearby change events against the incident.
func (e *Engine) FindCorrelatedEvents(ctx context.Context, incidentID string) ([]models.CorrelatedEvent, error) {
	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	return e.correlator.CorrelateEvents(collection), nil
}

// DetectFaultPatterns matches the registry's signatures against the
// incident's performance snapshots.
func (e *Engine) DetectFaultPatterns(ctx context.Context, incidentID string) ([]models.DetectedPattern, error) {
	var cached []models.DetectedPattern
	if e.readCached(ctx, patternsCacheKey(incidentID), &cached) {
		return cached, nil
	}

	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	detected := e.matcher.Detect(collection)
	e.writeCached(ctx, patternsCacheKey(incidentID), detected, e.ttls.Patterns)
	return detected, nil
}

// AssessIncidentRisk produces the risk picture for one incident.
func (e *Engine) AssessIncidentRisk(ctx context.Context, incidentID string) (models.RiskAssessment, error) {
	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return models.RiskAssessment{}, err
	}
	rootCause := e.causes.Analyze(collection)
	return e.risk.Assess(collection, rootCause.PrimaryCause), nil
}

// PredictEscalation estimates the probability the incident escalates.
func (e *Engine) PredictEscalation(ctx context.Context, incidentID string) (float64, error) {
	assessment, err := e.AssessIncidentRisk(ctx, incidentID)
	if err != nil {
		return 0, err
	}
	return assessment.EscalationProbability, nil
}

// CalculateBusinessImpact classifies the incident's four impact axes.
func (e *Engine) CalculateBusinessImpact(ctx context.Context, incidentID string) (models.BusinessImpact, error) {
	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return models.BusinessImpact{}, err
	}
	return e.risk.BusinessImpact(collection), nil
}

// AnalyzeCascadeFailure orders affected systems into a failure chain with
// containment and recovery plans.
func (e *Engine) AnalyzeCascadeFailure(ctx context.Context, incidentID string) (models.CascadeAnalysis, error) {
	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return models.CascadeAnalysis{}, err
	}
	return e.cascade.Analyze(collection), nil
}

// IdentifyFailurePoints lists systems most at risk of failing next.
func (e *Engine) IdentifyFailurePoints(ctx context.Context, incidentID string) ([]string, error) {
	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	return e.cascade.IdentifyFailurePoints(collection), nil
}

// LearnFromIncident reinforces the patterns detected for a resolved incident
// and extracts new signatures from the resolution. Stale per-incident caches
// are dropped so the next analysis sees the updated registry.
func (e *Engine) LearnFromIncident(ctx context.Context, incidentID string, resolution models.Resolution) error {
	collection, err := e.collector.Collect(ctx, incidentID)
	if err != nil {
		return err
	}

	seenAt := resolution.ResolvedAt
	if seenAt.IsZero() {
		seenAt = e.now()
	}
	for _, detected := range e.matcher.Detect(collection) {
		e.registry.Reinforce(detected.Pattern.ID, detected.Confidence, seenAt)
	}

	if _, err := e.registry.ExtractNew(collection, resolution); err != nil {
		return utils.StageError("learning", incidentID, err)
	}

	for _, key := range []string{analysisCacheKey(incidentID), patternsCacheKey(incidentID)} {
		if err := e.cache.Del(ctx, key); err != nil {
			e.logger.Warn("cache invalidation failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}

// UpdatePatternDatabase replaces or adds the given fault patterns.
func (e *Engine) UpdatePatternDatabase(patternSet []models.FaultPattern) {
	e.registry.Update(patternSet)
}

// AnalyzeErrorPatterns aggregates raw error events by class.
func AnalyzeErrorPatterns(events []models.ErrorEvent) []models.ErrorPatternSummary {
	byClass := make(map[string]*models.ErrorPatternSummary)
	var order []string

	for _, event := range events {
		summary, ok := byClass[event.Class]
		if !ok {
			summary = &models.ErrorPatternSummary{
				Class:     event.Class,
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
				Severity:  models.SeverityLow,
			}
			byClass[event.Class] = summary
			order = append(order, event.Class)
		}
		summary.Count += event.Count
		summary.Severity = models.MaxSeverity(summary.Severity, event.Severity)
		if event.Timestamp.Before(summary.FirstSeen) {
			summary.FirstSeen = event.Timestamp
		}
		if event.Timestamp.After(summary.LastSeen) {
			summary.LastSeen = event.Timestamp
		}
		if !containsString(summary.Entities, event.EntityID) {
			summary.Entities = append(summary.Entities, event.EntityID)
		}
	}

	summaries := make([]models.ErrorPatternSummary, 0, len(order))
	for _, class := range order {
		summaries = append(summaries, *byClass[class])
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})
	return summaries
}

func (e *Engine) detectCollectionAnomalies(collection models.IncidentDataCollection) []models.Anomaly {
	var anomalies []models.Anomaly
	for _, entity := range collection.Entities {
		for metric, series := range entity.Metrics {
			anomalies = append(anomalies, e.detector.Detect(series, metric, entity.EntityID)...)
		}
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Deviation > anomalies[j].Deviation
	})
	return anomalies
}

// aggregateConfidence averages the confidence signals that are present.
func aggregateConfidence(result models.AnalysisResult) float64 {
	var total float64
	var parts int

	if result.RootCause.Confidence > 0 {
		total += result.RootCause.Confidence
		parts++
	}
	if len(result.Patterns) > 0 {
		best := 0.0
		for _, detected := range result.Patterns {
			if detected.Confidence > best {
				best = detected.Confidence
			}
		}
		total += best
		parts++
	}
	if len(result.Anomalies) > 0 {
		best := 0.0
		for _, anomaly := range result.Anomalies {
			if anomaly.Confidence > best {
				best = anomaly.Confidence
			}
		}
		total += best
		parts++
	}
	if parts == 0 {
		return 0
	}
	return clamp(total/float64(parts), 0, 1)
}

func reportSummary(report models.IncidentReport) string {
	return fmt.Sprintf("%s: %s (risk %s, escalation %.0f%%, primary cause: %s)",
		report.Incident.ID,
		report.Incident.Title,
		report.Analysis.Risk.Level,
		report.Analysis.Risk.EscalationProbability*100,
		report.Analysis.RootCause.PrimaryCause.Description,
	)
}

func (e *Engine) readCached(ctx context.Context, key string, out any) bool {
	payload, err := e.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			e.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		metrics.ObserveCache(metrics.CacheMiss)
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		e.logger.Warn("cache entry corrupt", slog.String("key", key), slog.Any("error", err))
		return false
	}
	metrics.ObserveCache(metrics.CacheHit)
	return true
}

func (e *Engine) writeCached(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		e.logger.Warn("cache marshal failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := e.cache.Set(ctx, key, payload, ttl); err != nil {
		e.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	metrics.ObserveCache(metrics.CacheWrite)
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
