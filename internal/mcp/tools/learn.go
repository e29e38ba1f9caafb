package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/utils"
)

// LearnFromIncidentTool implements the learn_from_incident MCP tool.
type LearnFromIncidentTool struct {
	engine *engine.Engine
}

// NewLearnFromIncidentTool creates a learning tool.
func NewLearnFromIncidentTool(e *engine.Engine) *LearnFromIncidentTool {
	return &LearnFromIncidentTool{engine: e}
}

// LearnFromIncidentInput carries operator resolution feedback.
type LearnFromIncidentInput struct {
	IncidentID string `json:"incident_id"`
	RootCause  string `json:"root_cause"`
	FixApplied string `json:"fix_applied"`
	ResolvedAt string `json:"resolved_at,omitempty"` // RFC3339, defaults to now
	Notes      string `json:"notes,omitempty"`
}

// LearnFromIncidentOutput confirms the registry update.
type LearnFromIncidentOutput struct {
	Learned      bool `json:"learned"`
	PatternCount int  `json:"pattern_count"`
}

// Execute reinforces matched fault signatures with the resolution outcome.
func (t *LearnFromIncidentTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in LearnFromIncidentInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.IncidentID == "" {
		return nil, fmt.Errorf("incident_id is required")
	}

	resolvedAt := time.Time{}
	if in.ResolvedAt != "" {
		parsed, err := utils.ParseRFC3339(in.ResolvedAt)
		if err != nil {
			return nil, fmt.Errorf("resolved_at: %w", err)
		}
		resolvedAt = parsed
	}

	resolution := models.Resolution{
		RootCause:  in.RootCause,
		FixApplied: in.FixApplied,
		ResolvedAt: resolvedAt,
		Notes:      in.Notes,
	}
	if err := t.engine.LearnFromIncident(ctx, in.IncidentID, resolution); err != nil {
		return nil, err
	}
	return LearnFromIncidentOutput{
		Learned:      true,
		PatternCount: len(t.engine.Registry().Snapshot()),
	}, nil
}
