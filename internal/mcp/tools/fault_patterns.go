package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
)

// DetectFaultPatternsTool implements the detect_fault_patterns MCP tool.
type DetectFaultPatternsTool struct {
	engine *engine.Engine
}

// NewDetectFaultPatternsTool creates a fault pattern detection tool.
func NewDetectFaultPatternsTool(e *engine.Engine) *DetectFaultPatternsTool {
	return &DetectFaultPatternsTool{engine: e}
}

// DetectFaultPatternsInput names the incident to match signatures against.
type DetectFaultPatternsInput struct {
	IncidentID string `json:"incident_id"`
}

// DetectFaultPatternsOutput lists matched signatures, best first.
type DetectFaultPatternsOutput struct {
	Patterns []models.DetectedPattern `json:"patterns"`
	Count    int                      `json:"count"`
}

// Execute matches the registered fault signatures against the incident.
func (t *DetectFaultPatternsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in DetectFaultPatternsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.IncidentID == "" {
		return nil, fmt.Errorf("incident_id is required")
	}

	detected, err := t.engine.DetectFaultPatterns(ctx, in.IncidentID)
	if err != nil {
		return nil, err
	}
	return DetectFaultPatternsOutput{Patterns: detected, Count: len(detected)}, nil
}
