package llm

// BuildProposalJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It is embedded in the system prompt and used locally for strict validation.
func BuildProposalJSONSchema() map[string]any {
	client := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    nonBlank(),
			"company": map[string]any{"type": "string"},
			"email":   map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	}
	project := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"address": nonBlank(),
			"date":    map[string]any{"type": "string"},
		},
		"required": []string{"address"},
	}
	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sku":         map[string]any{"type": "string"},
			"title":       nonBlank(),
			"description": map[string]any{"type": "string"},
			"qty":         amountProp(),
			"rate":        amountProp(),
			"total":       amountProp(),
		},
		"required": []string{"title", "qty", "rate", "total"},
	}

	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"client":     client,
			"project":    project,
			"lineItems":  map[string]any{"type": "array", "items": lineItem},
			"grandTotal": amountProp(),
		},
		"required": []string{"client", "project", "lineItems", "grandTotal"},
	}
}

func amountProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0}
}

// nonBlank requires at least one non-whitespace character.
func nonBlank() map[string]any {
	return map[string]any{"type": "string", "pattern": `\S`}
}
