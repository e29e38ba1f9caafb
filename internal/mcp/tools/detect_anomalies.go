package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/models"
	"github.com/faultlinestack/faultline/internal/utils"
)

// DetectAnomaliesTool implements the detect_anomalies MCP tool.
type DetectAnomaliesTool struct {
	engine *engine.Engine
}

// NewDetectAnomaliesTool creates a detect anomalies tool.
func NewDetectAnomaliesTool(e *engine.Engine) *DetectAnomaliesTool {
	return &DetectAnomaliesTool{engine: e}
}

// DetectAnomaliesInput selects the entity and time range to examine.
type DetectAnomaliesInput struct {
	EntityID  string `json:"entity_id"`
	StartTime string `json:"start_time"` // RFC3339
	EndTime   string `json:"end_time"`   // RFC3339
}

// DetectAnomaliesOutput lists the anomalies found, worst first.
type DetectAnomaliesOutput struct {
	Anomalies  []models.Anomaly `json:"anomalies"`
	Count      int              `json:"count"`
	BySeverity map[string]int   `json:"by_severity"`
}

// Execute runs anomaly detection over every metric series of the entity.
func (t *DetectAnomaliesTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in DetectAnomaliesInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.EntityID == "" {
		return nil, fmt.Errorf("entity_id is required")
	}
	start, err := utils.ParseRFC3339(in.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	end, err := utils.ParseRFC3339(in.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end_time: %w", err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end_time must be after start_time")
	}

	anomalies, err := t.engine.DetectAnomalies(ctx, in.EntityID, models.TimeWindow{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	bySeverity := make(map[string]int)
	for _, anomaly := range anomalies {
		bySeverity[string(anomaly.Severity)]++
	}
	return DetectAnomaliesOutput{
		Anomalies:  anomalies,
		Count:      len(anomalies),
		BySeverity: bySeverity,
	}, nil
}
