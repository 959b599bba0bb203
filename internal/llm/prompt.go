package llm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// BuildSystemPrompt composes the fixed system message: where to look in a
// proposal, how to tell quantities from money, and the JSON shape to return.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a proposal and estimate parser for a professional services company. Return ONLY one JSON object that matches the JSON Schema below.",

		// Locate the blocks:
		"The document may have many pages (cover letter, scope narrative, terms, signature page). Find the client block (who the proposal is addressed to), the project block (job site address and proposal date) and the pricing/estimate page that holds the itemized price table.",

		// Line items:
		"Extract every priced line from the pricing table into 'lineItems'. If the table has selection checkboxes, include only the checked rows; otherwise include all rows.",
		"For each line use 'title' for the service name, 'description' for any detail text and 'sku' for an item code when one is printed.",

		// Quantities vs money. This is the most common mistake:
		"Keep quantity and money apart. 'qty' is a count, square footage, area, hours or units. 'rate' is the unit price in currency. 'total' is the extended line amount in currency.",
		"Never put square footage, area or hour counts into 'rate' or 'total'. If a row only shows a single price, use it for both 'rate' and 'total' with 'qty' 1.",

		// Grand total:
		"Set 'grandTotal' to the bottom-line total of the proposal (after discounts, the amount the client is asked to pay).",

		// Formatting hygiene:
		"All money and quantity fields are plain JSON numbers without currency symbols or thousands separators. Use 0 when a number is not shown. Never output null; omit optional text fields that are not present.",
		"If the client is a business, put the business name in 'company' and the contact person in 'name'.",

		"JSON Schema:\n" + mustJSON(BuildProposalJSONSchema()),
	}
	return strings.Join(parts, "\n")
}

// BuildUserPrompt is the per-document instruction sent alongside the pages.
func BuildUserPrompt(pageCount int) string {
	var b strings.Builder
	b.WriteString("Attached are ")
	b.WriteString(strconv.Itoa(pageCount))
	if pageCount == 1 {
		b.WriteString(" page image of a proposal, in page order.")
	} else {
		b.WriteString(" page images of a proposal, in page order.")
	}
	b.WriteString(" Locate the pricing page, extract the client, project, every priced line item and the grand total.")
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
