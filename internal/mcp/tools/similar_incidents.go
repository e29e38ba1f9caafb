package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
)

// FindSimilarIncidentsTool implements the find_similar_incidents MCP tool.
type FindSimilarIncidentsTool struct {
	engine *engine.Engine
}

// NewFindSimilarIncidentsTool creates a similar incidents tool.
func NewFindSimilarIncidentsTool(e *engine.Engine) *FindSimilarIncidentsTool {
	return &FindSimilarIncidentsTool{engine: e}
}

// FindSimilarIncidentsInput names the incident to match against history.
type FindSimilarIncidentsInput struct {
	IncidentID string `json:"incident_id"`
}

// FindSimilarIncidentsOutput lists historical matches, best first.
type FindSimilarIncidentsOutput struct {
	Similar []models.SimilarIncident `json:"similar_incidents"`
	Count   int                      `json:"count"`
}

// Execute scores the incident against its entity's recent history.
func (t *FindSimilarIncidentsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in FindSimilarIncidentsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.IncidentID == "" {
		return nil, fmt.Errorf("incident_id is required")
	}

	similar, err := t.engine.FindSimilarIncidentsByID(ctx, in.IncidentID)
	if err != nil {
		return nil, err
	}
	return FindSimilarIncidentsOutput{Similar: similar, Count: len(similar)}, nil
}
