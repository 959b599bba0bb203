package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
)

// maxLoggedRaw caps how much of a bad response is written to the log.
const maxLoggedRaw = 16 << 10

// Validator turns raw model text into a ValidatedExtraction.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate strips fences, parses and validates text. Unparsable JSON (or a
// non-object document) fails with *common.MalformedResponseError. A schema
// mismatch does not fail: a lenient structure is built and the report is
// marked degraded.
func (v *Validator) Validate(text string) (entity.ValidatedExtraction, ValidationReport, error) {
	cleaned := StripCodeFences(text)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return v.malformed(text, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return v.malformed(text, fmt.Errorf("expected a JSON object, got %s", jsonKind(doc)))
	}

	schema, err := proposalSchema()
	if err != nil {
		return entity.ValidatedExtraction{}, ValidationReport{}, common.NewAppError("SCHEMA_ERROR", "compile proposal schema", err)
	}

	strictErr := schema.Validate(doc)
	if strictErr == nil {
		var out entity.ValidatedExtraction
		if strictErr = json.Unmarshal([]byte(cleaned), &out); strictErr == nil {
			if out.LineItems == nil {
				out.LineItems = []entity.LineItem{}
			}
			v.logger.Debug("llm.validate.ok", "line_items", len(out.LineItems))
			return out, ValidationReport{}, nil
		}
	}

	out := BuildLenient(obj)
	report := ValidationReport{Degraded: true, Reason: strictErr.Error()}
	v.logger.Warn("llm.validate.degraded",
		"reason", report.Reason,
		"line_items", len(out.LineItems),
		"grand_total", out.GrandTotal,
	)
	return out, report, nil
}

func (v *Validator) malformed(raw string, err error) (entity.ValidatedExtraction, ValidationReport, error) {
	logged := raw
	if len(logged) > maxLoggedRaw {
		logged = logged[:maxLoggedRaw] + "...(truncated)"
	}
	v.logger.Error("llm.validate.malformed", "error", err, "raw", logged)
	return entity.ValidatedExtraction{}, ValidationReport{}, &common.MalformedResponseError{Raw: raw, Err: err}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
