package constants

// Reconciliation heuristics. The values are calibrated against real
// proposals; changing them is a product decision.
const (
	// ConfusionMultiplier: line items summing to more than this multiple of
	// the grand total are treated as quantity/price confusion.
	ConfusionMultiplier = 5.0

	// DivergenceTolerance is the relative gap between reconciled service
	// prices and the grand total that is reported as a warning.
	DivergenceTolerance = 0.10

	ConfidenceConfused = 65
	ConfidenceClean    = 85
)

// Extraction defaults.
const (
	DefaultMaxPages    = 8
	DefaultDPI         = 150
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.1

	// ImageDetail is the detail level requested for every page attachment.
	ImageDetail = "high"

	UnknownValue = "Unknown"
	UnknownItem  = "Unknown Item"
)
