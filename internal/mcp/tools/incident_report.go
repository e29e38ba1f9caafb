package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
)

// CreateIncidentReportTool implements the create_incident_report MCP tool.
type CreateIncidentReportTool struct {
	engine *engine.Engine
}

// NewCreateIncidentReportTool creates an incident report tool.
func NewCreateIncidentReportTool(e *engine.Engine) *CreateIncidentReportTool {
	return &CreateIncidentReportTool{engine: e}
}

// CreateIncidentReportInput names the incident to report on.
type CreateIncidentReportInput struct {
	IncidentID string `json:"incident_id"`
}

// CreateIncidentReportOutput carries the full report.
type CreateIncidentReportOutput struct {
	Report models.IncidentReport `json:"report"`
}

// Execute assembles the complete report: analysis, cascade picture, similar
// incidents and the action plan.
func (t *CreateIncidentReportTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in CreateIncidentReportInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.IncidentID == "" {
		return nil, fmt.Errorf("incident_id is required")
	}

	report, err := t.engine.CreateIncidentReport(ctx, in.IncidentID)
	if err != nil {
		return nil, err
	}
	return CreateIncidentReportOutput{Report: report}, nil
}
