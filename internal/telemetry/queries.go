package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

// The fetchers below compose NRQL-style queries over ExecuteQuery and decode
// rows into domain values. Row keys follow the platform's event attribute
// naming.

// FetchTimeline returns the discrete incident timeline events in the window.
func (c *HTTPClient) FetchTimeline(ctx context.Context, incidentID string, w models.TimeWindow) ([]models.TimelineEvent, error) {
	query := fmt.Sprintf(
		"SELECT timestamp, description, source FROM IncidentEvent WHERE incidentId = '%s' %s LIMIT 200",
		incidentID, windowClause(w),
	)
	result, err := c.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]models.TimelineEvent, 0, len(result.Rows))
	for _, row := range result.Rows {
		events = append(events, models.TimelineEvent{
			Timestamp:   rowTime(row, "timestamp"),
			Description: rowString(row, "description"),
			Source:      rowString(row, "source"),
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

// FetchEntityMetrics returns per-entity metric series for the affected entity
// and its facet neighbours.
func (c *HTTPClient) FetchEntityMetrics(ctx context.Context, entityID string, w models.TimeWindow) ([]models.AffectedEntity, error) {
	query := fmt.Sprintf(
		"SELECT timestamp, entityId, entityName, entityType, metricName, value FROM Metric WHERE entityId = '%s' OR relatedEntityId = '%s' %s LIMIT 2000",
		entityID, entityID, windowClause(w),
	)
	result, err := c.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	byEntity := make(map[string]*models.AffectedEntity)
	order := make([]string, 0)
	for _, row := range result.Rows {
		id := rowString(row, "entityId")
		if id == "" {
			continue
		}
		entity, ok := byEntity[id]
		if !ok {
			entity = &models.AffectedEntity{
				EntityID: id,
				Name:     rowString(row, "entityName"),
				Type:     rowString(row, "entityType"),
				Metrics:  make(map[string][]models.MetricPoint),
			}
			byEntity[id] = entity
			order = append(order, id)
		}
		metric := rowString(row, "metricName")
		if metric == "" {
			continue
		}
		entity.Metrics[metric] = append(entity.Metrics[metric], models.MetricPoint{
			Timestamp: rowTime(row, "timestamp"),
			Value:     rowFloat(row, "value"),
		})
	}

	entities := make([]models.AffectedEntity, 0, len(order))
	for _, id := range order {
		entity := byEntity[id]
		for metric := range entity.Metrics {
			series := entity.Metrics[metric]
			sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
			entity.Metrics[metric] = series
		}
		entities = append(entities, *entity)
	}
	return entities, nil
}

// FetchPerformanceSnapshots returns time-bucketed performance aggregates.
func (c *HTTPClient) FetchPerformanceSnapshots(ctx context.Context, entityID string, w models.TimeWindow, interval time.Duration) ([]models.PerformanceSnapshot, error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	query := fmt.Sprintf(
		"SELECT average(duration), rate(count(*), 1 minute), percentage(count(*), WHERE error IS true), apdex(duration), average(cpuPercent), average(memoryPercent) FROM Transaction WHERE entityId = '%s' %s TIMESERIES %d minutes",
		entityID, windowClause(w), int(interval.Minutes()),
	)
	result, err := c.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.PerformanceSnapshot, 0, len(result.Rows))
	for _, row := range result.Rows {
		snapshots = append(snapshots, models.PerformanceSnapshot{
			Timestamp:      rowTime(row, "timestamp"),
			EntityID:       entityID,
			ResponseTimeMs: rowFloat(row, "response_time"),
			Throughput:     rowFloat(row, "throughput"),
			ErrorRate:      rowFloat(row, "error_rate"),
			Apdex:          rowFloat(row, "apdex"),
			CPUPercent:     rowFloat(row, "cpu"),
			MemoryPercent:  rowFloat(row, "memory"),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Timestamp.Before(snapshots[j].Timestamp) })
	return snapshots, nil
}

// FetchErrorEvents returns aggregated error events in the window.
func (c *HTTPClient) FetchErrorEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.ErrorEvent, error) {
	query := fmt.Sprintf(
		"SELECT timestamp, entityId, errorClass, message, count(*) FROM TransactionError WHERE entityId = '%s' %s FACET errorClass LIMIT 500",
		entityID, windowClause(w),
	)
	result, err := c.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]models.ErrorEvent, 0, len(result.Rows))
	for _, row := range result.Rows {
		count := int(rowFloat(row, "count"))
		if count <= 0 {
			count = 1
		}
		events = append(events, models.ErrorEvent{
			Timestamp: rowTime(row, "timestamp"),
			EntityID:  rowString(row, "entityId"),
			Class:     rowString(row, "errorClass"),
			Message:   rowString(row, "message"),
			Count:     count,
			Severity:  models.Severity(rowStringDefault(row, "severity", string(models.SeverityMedium))),
		})
	}
	return events, nil
}

// FetchDeploymentEvents returns deployments near the incident window.
func (c *HTTPClient) FetchDeploymentEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.DeploymentEvent, error) {
	query := fmt.Sprintf(
		"SELECT timestamp, entityId, revision, description, user FROM Deployment WHERE entityId = '%s' OR entityId IS NULL %s LIMIT 100",
		entityID, windowClause(w),
	)
	result, err := c.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]models.DeploymentEvent, 0, len(result.Rows))
	for _, row := range result.Rows {
		events = append(events, models.DeploymentEvent{
			Timestamp:   rowTime(row, "timestamp"),
			EntityID:    rowString(row, "entityId"),
			Revision:    rowString(row, "revision"),
			Description: rowString(row, "description"),
			User:        rowString(row, "user"),
		})
	}
	return events, nil
}

// FetchInfrastructureEvents returns host and platform events in the window.
func (c *HTTPClient) FetchInfrastructureEvents(ctx context.Context, entityID string, w models.TimeWindow) ([]models.InfrastructureEvent, error) {
	query := fmt.Sprintf(
		"SELECT timestamp, entityId, eventKind, severity, description FROM InfrastructureEvent WHERE entityId = '%s' OR relatedEntityId = '%s' %s LIMIT 200",
		entityID, entityID, windowClause(w),
	)
	result, err := c.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]models.InfrastructureEvent, 0, len(result.Rows))
	for _, row := range result.Rows {
		events = append(events, models.InfrastructureEvent{
			Timestamp:   rowTime(row, "timestamp"),
			EntityID:    rowString(row, "entityId"),
			Kind:        rowString(row, "eventKind"),
			Severity:    models.Severity(rowStringDefault(row, "severity", string(models.SeverityMedium))),
			Description: rowString(row, "description"),
		})
	}
	return events, nil
}

func windowClause(w models.TimeWindow) string {
	return fmt.Sprintf("SINCE '%s' UNTIL '%s'", w.Start.UTC().Format(time.RFC3339), w.End.UTC().Format(time.RFC3339))
}

func rowString(row Row, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func rowStringDefault(row Row, key, fallback string) string {
	if v := rowString(row, key); v != "" {
		return v
	}
	return fallback
}

func rowFloat(row Row, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// rowTime accepts RFC3339 strings or epoch milliseconds.
func rowTime(row Row, key string) time.Time {
	switch v := row[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Time{}
}
