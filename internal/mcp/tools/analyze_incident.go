package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
)

// AnalyzeIncidentTool implements the analyze_incident MCP tool.
type AnalyzeIncidentTool struct {
	engine *engine.Engine
}

// NewAnalyzeIncidentTool creates an analyze incident tool.
func NewAnalyzeIncidentTool(e *engine.Engine) *AnalyzeIncidentTool {
	return &AnalyzeIncidentTool{engine: e}
}

// AnalyzeIncidentInput is the input for the analyze_incident tool.
type AnalyzeIncidentInput struct {
	IncidentID string `json:"incident_id"`
}

// AnalyzeIncidentOutput is the result of one full analysis pass.
type AnalyzeIncidentOutput struct {
	Analysis models.AnalysisResult `json:"analysis"`
}

// Execute runs the full analysis pipeline for one incident.
func (t *AnalyzeIncidentTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in AnalyzeIncidentInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.IncidentID == "" {
		return nil, fmt.Errorf("incident_id is required")
	}

	result, err := t.engine.AnalyzeIncident(ctx, in.IncidentID)
	if err != nil {
		return nil, err
	}
	return AnalyzeIncidentOutput{Analysis: result}, nil
}
