// Package normalize maps reconciled extractions onto the result shape
// handed to callers.
package normalize

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
)

// ToExtractionResult builds the caller-facing result. Areas, variables and
// unmapped fields are always empty here.
func ToExtractionResult(r entity.ReconciledExtraction) entity.ExtractionResult {
	name := strings.TrimSpace(r.Client.Name)
	clientName := strings.TrimSpace(r.Client.Company)
	if clientName == "" {
		clientName = name
	}

	contacts := []entity.Contact{}
	if name != "" {
		contacts = append(contacts, entity.Contact{
			Name:    name,
			Email:   strings.TrimSpace(r.Client.Email),
			Company: strings.TrimSpace(r.Client.Company),
		})
	}

	services := make([]entity.Service, 0, len(r.LineItems))
	for _, it := range r.LineItems {
		services = append(services, entity.Service{
			Name:        it.Title,
			Description: it.Description,
			Quantity:    it.Qty,
			Price:       it.Price,
		})
	}

	return entity.ExtractionResult{
		ProjectName:    r.Project.Address,
		ProjectAddress: r.Project.Address,
		ClientName:     clientName,
		TotalPrice:     r.GrandTotal,
		Confidence:     r.Confidence,
		Contacts:       contacts,
		Services:       services,
		Areas:          []any{},
		Variables:      map[string]any{},
		UnmappedFields: []string{},
		Warnings:       warnings(r),
	}
}

func warnings(r entity.ReconciledExtraction) []string {
	var out []string
	if r.IsDataConfused {
		out = append(out, fmt.Sprintf("line item totals (%.2f) exceed %gx the grand total (%.2f); prices were re-derived and need review",
			r.RawLineItemSum, constants.ConfusionMultiplier, r.GrandTotal))
	}
	if r.Diverged {
		out = append(out, fmt.Sprintf("service prices sum to %.2f but the grand total is %.2f", r.ServiceSum, r.GrandTotal))
	}
	if r.Degraded {
		out = append(out, "model output did not match the expected schema; fields were filled best-effort")
	}
	return out
}
