package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
)

// AnalyzeCascadeTool implements the analyze_cascade_failure MCP tool.
type AnalyzeCascadeTool struct {
	engine *engine.Engine
}

// NewAnalyzeCascadeTool creates a cascade analysis tool.
func NewAnalyzeCascadeTool(e *engine.Engine) *AnalyzeCascadeTool {
	return &AnalyzeCascadeTool{engine: e}
}

// AnalyzeCascadeInput names the incident to analyze.
type AnalyzeCascadeInput struct {
	IncidentID string `json:"incident_id"`
}

// AnalyzeCascadeOutput carries the failure chain, recovery plan and the
// systems most at risk of failing next.
type AnalyzeCascadeOutput struct {
	Cascade       models.CascadeAnalysis `json:"cascade"`
	FailurePoints []string               `json:"failure_points"`
}

// Execute builds the cascade chain, containment and recovery plans.
func (t *AnalyzeCascadeTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in AnalyzeCascadeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.IncidentID == "" {
		return nil, fmt.Errorf("incident_id is required")
	}

	cascade, err := t.engine.AnalyzeCascadeFailure(ctx, in.IncidentID)
	if err != nil {
		return nil, err
	}
	points, err := t.engine.IdentifyFailurePoints(ctx, in.IncidentID)
	if err != nil {
		return nil, err
	}
	return AnalyzeCascadeOutput{Cascade: cascade, FailurePoints: points}, nil
}
