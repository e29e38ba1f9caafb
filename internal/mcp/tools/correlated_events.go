package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
)

// FindCorrelatedEventsTool implements the find_correlated_events MCP tool.
type FindCorrelatedEventsTool struct {
	engine *engine.Engine
}

// NewFindCorrelatedEventsTool creates a correlated events tool.
func NewFindCorrelatedEventsTool(e *engine.Engine) *FindCorrelatedEventsTool {
	return &FindCorrelatedEventsTool{engine: e}
}

// FindCorrelatedEventsInput names the incident to correlate against.
type FindCorrelatedEventsInput struct {
	IncidentID string `json:"incident_id"`
}

// FindCorrelatedEventsOutput lists scored change events, best first.
type FindCorrelatedEventsOutput struct {
	Events []models.CorrelatedEvent `json:"correlated_events"`
	Count  int                      `json:"count"`
}

// Execute scores deployment and infrastructure events near the incident.
func (t *FindCorrelatedEventsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in FindCorrelatedEventsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.IncidentID == "" {
		return nil, fmt.Errorf("incident_id is required")
	}

	events, err := t.engine.FindCorrelatedEvents(ctx, in.IncidentID)
	if err != nil {
		return nil, err
	}
	return FindCorrelatedEventsOutput{Events: events, Count: len(events)}, nil
}
