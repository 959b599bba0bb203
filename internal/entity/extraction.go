package entity

// Client is the customer block found on a proposal.
type Client struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Project is the job site block found on a proposal.
type Project struct {
	Address string `json:"address"`
	Date    string `json:"date,omitempty"`
}

// LineItem is one priced row of the estimate table. Numeric fields are
// finite and non-negative once validated.
type LineItem struct {
	SKU         string  `json:"sku,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Qty         float64 `json:"qty"`
	Rate        float64 `json:"rate"`
	Total       float64 `json:"total"`
}

// ValidatedExtraction is the model response after schema validation or
// lenient coercion.
type ValidatedExtraction struct {
	Client     Client     `json:"client"`
	Project    Project    `json:"project"`
	LineItems  []LineItem `json:"lineItems"`
	GrandTotal float64    `json:"grandTotal"`
}

// ReconciledLineItem carries the effective price chosen during reconciliation.
type ReconciledLineItem struct {
	LineItem
	Price float64 `json:"price"`
}

// ReconciledExtraction is a ValidatedExtraction with resolved prices.
type ReconciledExtraction struct {
	Client         Client               `json:"client"`
	Project        Project              `json:"project"`
	LineItems      []ReconciledLineItem `json:"lineItems"`
	GrandTotal     float64              `json:"grandTotal"`
	RawLineItemSum float64              `json:"rawLineItemSum"`
	ServiceSum     float64              `json:"serviceSum"`
	IsDataConfused bool                 `json:"isDataConfused"`
	Diverged       bool                 `json:"diverged"`
	Confidence     int                  `json:"confidence"`
	Degraded       bool                 `json:"degraded,omitempty"`
}
