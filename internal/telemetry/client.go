package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/faultlinestack/faultline/internal/metrics"
	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/utils"
)

// Row is a single result row from a telemetry query.
type Row map[string]any

// QueryMetadata describes the executed query.
type QueryMetadata struct {
	Facets  []string
	Window  models.TimeWindow
	Elapsed time.Duration
}

// QueryResult carries rows plus metadata from the telemetry store.
type QueryResult struct {
	Rows     []Row
	Metadata QueryMetadata
}

// Client is the telemetry platform collaborator consumed by the engine.
type Client interface {
	ExecuteQuery(ctx context.Context, query string) (QueryResult, error)
	GetIncident(ctx context.Context, id string) (models.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]models.Incident, error)
}

// IncidentFilter narrows ListIncidents results.
type IncidentFilter struct {
	EntityID string
	State    models.IncidentState
	Since    time.Time
	Until    time.Time
	Limit    int
}

// HTTPClient implements Client against the telemetry platform's JSON APIs.
type HTTPClient struct {
	baseURL       string
	queryPath     string
	incidentsPath string
	apiKey        string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewHTTPClient constructs a client targeting the configured telemetry platform.
func NewHTTPClient(baseURL, queryPath, incidentsPath, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		queryPath:     queryPath,
		incidentsPath: incidentsPath,
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// ExecuteQuery runs an NRQL-style query and returns rows plus metadata.
func (c *HTTPClient) ExecuteQuery(ctx context.Context, query string) (QueryResult, error) {
	if c == nil || c.baseURL == "" {
		return QueryResult{}, fmt.Errorf("telemetry client not configured")
	}
	if strings.TrimSpace(query) == "" {
		return QueryResult{}, fmt.Errorf("empty query")
	}

	payload := map[string]any{"query": query}

	var response struct {
		Rows     []Row `json:"rows"`
		Metadata struct {
			Facets    []string  `json:"facets"`
			StartTime time.Time `json:"start_time"`
			EndTime   time.Time `json:"end_time"`
			ElapsedMs float64   `json:"elapsed_ms"`
		} `json:"metadata"`
	}

	start := time.Now()
	err := c.postJSON(ctx, c.resolvePath(c.queryPath), payload, &response)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveQuery(duration, metrics.OutcomeError)
		return QueryResult{}, fmt.Errorf("telemetry query failed: %w", err)
	}
	metrics.ObserveQuery(duration, metrics.OutcomeSuccess)
	utils.LogQueryExecution(c.logger, query, len(response.Rows), duration)

	return QueryResult{
		Rows: response.Rows,
		Metadata: QueryMetadata{
			Facets:  response.Metadata.Facets,
			Window:  models.TimeWindow{Start: response.Metadata.StartTime, End: response.Metadata.EndTime},
			Elapsed: time.Duration(response.Metadata.ElapsedMs * float64(time.Millisecond)),
		},
	}, nil
}

// GetIncident resolves incident details, mapping an absent incident to
// utils.ErrIncidentNotFound.
func (c *HTTPClient) GetIncident(ctx context.Context, id string) (models.Incident, error) {
	if c == nil || c.baseURL == "" {
		return models.Incident{}, fmt.Errorf("telemetry client not configured")
	}
	if id == "" {
		return models.Incident{}, fmt.Errorf("incident id is required")
	}

	var response incidentPayload
	endpoint := c.resolvePath(c.incidentsPath) + "/" + url.PathEscape(id)
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		if isNotFound(err) {
			return models.Incident{}, fmt.Errorf("incident %s: %w", id, utils.ErrIncidentNotFound)
		}
		return models.Incident{}, fmt.Errorf("telemetry incident request failed: %w", err)
	}
	return response.toModel(), nil
}

// ListIncidents returns incidents matching the filter.
func (c *HTTPClient) ListIncidents(ctx context.Context, filter IncidentFilter) ([]models.Incident, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("telemetry client not configured")
	}

	endpoint, err := url.Parse(c.resolvePath(c.incidentsPath))
	if err != nil {
		return nil, fmt.Errorf("parse incidents endpoint: %w", err)
	}
	q := endpoint.Query()
	if filter.EntityID != "" {
		q.Set("entity_id", filter.EntityID)
	}
	if filter.State != "" {
		q.Set("state", string(filter.State))
	}
	if !filter.Since.IsZero() {
		q.Set("since", filter.Since.Format(time.RFC3339))
	}
	if !filter.Until.IsZero() {
		q.Set("until", filter.Until.Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}
	endpoint.RawQuery = q.Encode()

	var response struct {
		Incidents []incidentPayload `json:"incidents"`
	}
	if err := c.getJSON(ctx, endpoint.String(), &response); err != nil {
		return nil, fmt.Errorf("telemetry incident list failed: %w", err)
	}

	incidents := make([]models.Incident, 0, len(response.Incidents))
	for _, payload := range response.Incidents {
		incidents = append(incidents, payload.toModel())
	}
	return incidents, nil
}

type incidentPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	State       string    `json:"state"`
	Priority    string    `json:"priority"`
	PolicyID    string    `json:"policy_id"`
	ConditionID string    `json:"condition_id"`
	EntityID    string    `json:"entity_id"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
}

func (p incidentPayload) toModel() models.Incident {
	return models.Incident{
		ID:          p.ID,
		Title:       p.Title,
		State:       models.IncidentState(p.State),
		Priority:    models.Priority(p.Priority),
		PolicyID:    p.PolicyID,
		ConditionID: p.ConditionID,
		EntityID:    p.EntityID,
		OpenedAt:    p.OpenedAt,
		ClosedAt:    p.ClosedAt,
	}
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("telemetry platform returned %s", e.status)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

func (c *HTTPClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *HTTPClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	if req.URL.String() == "" {
		return fmt.Errorf("empty endpoint")
	}
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
