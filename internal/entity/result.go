package entity

// Contact is a person attached to the extracted deal.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
}

// Service is a priced line of the extracted deal.
type Service struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
}

// ExtractionResult is the terminal artifact handed to callers.
type ExtractionResult struct {
	ProjectName    string         `json:"projectName" yaml:"projectName"`
	ProjectAddress string         `json:"projectAddress" yaml:"projectAddress"`
	ClientName     string         `json:"clientName" yaml:"clientName"`
	TotalPrice     float64        `json:"totalPrice" yaml:"totalPrice"`
	Confidence     int            `json:"confidence" yaml:"confidence"`
	Contacts       []Contact      `json:"contacts" yaml:"contacts"`
	Services       []Service      `json:"services" yaml:"services"`
	Areas          []any          `json:"areas" yaml:"areas"`
	Variables      map[string]any `json:"variables" yaml:"variables"`
	UnmappedFields []string       `json:"unmappedFields" yaml:"unmappedFields"`
	Warnings       []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
