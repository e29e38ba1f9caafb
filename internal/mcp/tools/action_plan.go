package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
)

// GenerateActionPlanTool implements the generate_action_plan MCP tool.
type GenerateActionPlanTool struct {
	engine *engine.Engine
}

// NewGenerateActionPlanTool creates an action plan tool.
func NewGenerateActionPlanTool(e *engine.Engine) *GenerateActionPlanTool {
	return &GenerateActionPlanTool{engine: e}
}

// GenerateActionPlanInput names the incident to plan for.
type GenerateActionPlanInput struct {
	IncidentID string `json:"incident_id"`
}

// GenerateActionPlanOutput buckets the remediation work by horizon.
type GenerateActionPlanOutput struct {
	Plan models.ActionPlan `json:"plan"`
}

// Execute runs the analysis and regroups its recommendations into an
// execution plan.
func (t *GenerateActionPlanTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in GenerateActionPlanInput
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
	return GenerateActionPlanOutput{Plan: t.engine.GenerateActionPlan(result)}, nil
}
