package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
)

// AssessRiskTool implements the assess_incident_risk MCP tool.
type AssessRiskTool struct {
	engine *engine.Engine
}

// NewAssessRiskTool creates a risk assessment tool.
func NewAssessRiskTool(e *engine.Engine) *AssessRiskTool {
	return &AssessRiskTool{engine: e}
}

// AssessRiskInput names the incident to assess.
type AssessRiskInput struct {
	IncidentID string `json:"incident_id"`
}

// AssessRiskOutput carries the full risk picture, including escalation
// probability and the four-axis business impact.
type AssessRiskOutput struct {
	Risk models.RiskAssessment `json:"risk"`
}

// Execute derives risk factors, escalation probability, business impact and a
// resolution estimate for the incident.
func (t *AssessRiskTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in AssessRiskInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.IncidentID == "" {
		return nil, fmt.Errorf("incident_id is required")
	}

	assessment, err := t.engine.AssessIncidentRisk(ctx, in.IncidentID)
	if err != nil {
		return nil, err
	}
	return AssessRiskOutput{Risk: assessment}, nil
}
