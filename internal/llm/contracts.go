package llm

import "context"

// Image is one page attachment. Backends use whichever of DataURI or Data
// their wire format needs.
type Image struct {
	MIMEType string
	DataURI  string
	Data     []byte
	Detail   string
}

// VisionRequest is a single-turn multimodal completion request.
type VisionRequest struct {
	System      string
	User        string
	Images      []Image
	MaxTokens   int
	Temperature float32
}

// VisionCompleter is the reasoning service the extractor depends on.
// Implementations return "" (not an error) when the service replied with
// no content.
type VisionCompleter interface {
	Complete(ctx context.Context, req VisionRequest) (string, error)
}

// ValidationReport describes how a response was validated.
type ValidationReport struct {
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}
