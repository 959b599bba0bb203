package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/constants"
)

// ExtractionRun represents one journaled pipeline invocation.
type ExtractionRun struct {
	ID             uuid.UUID           `json:"id"`
	Source         string              `json:"source"`
	Status         constants.RunStatus `json:"status"`
	Confidence     *int                `json:"confidence,omitempty"`
	IsDataConfused bool                `json:"is_data_confused"`
	Degraded       bool                `json:"degraded"`
	TotalPrice     *float64            `json:"total_price,omitempty"`
	ResultJSON     json.RawMessage     `json:"result_json,omitempty"`
	ErrorMessage   *string             `json:"error_message,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
}

// Result decodes ResultJSON, returning nil when the run has no result.
func (r *ExtractionRun) Result() (*ExtractionResult, error) {
	if len(r.ResultJSON) == 0 {
		return nil, nil
	}
	var out ExtractionResult
	if err := json.Unmarshal(r.ResultJSON, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
