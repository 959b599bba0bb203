package llm

import (
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
)

// BuildLenient builds a best-effort extraction from a decoded object that
// failed strict validation. Every field has a fallback key and a default,
// so this never fails.
func BuildLenient(m map[string]any) entity.ValidatedExtraction {
	client := asMap(m["client"])
	project := asMap(m["project"])

	out := entity.ValidatedExtraction{
		Client: entity.Client{
			Name:    stringOr(constants.UnknownValue, client, "name"),
			Company: stringOr("", client, "company"),
			Email:   stringOr("", client, "email"),
		},
		Project: entity.Project{
			Address: stringOr(constants.UnknownValue, project, "address"),
			Date:    stringOr("", project, "date"),
		},
		GrandTotal: amountOr(0, m, "grandTotal", "total"),
		LineItems:  []entity.LineItem{},
	}

	items, _ := m["lineItems"].([]any)
	for _, raw := range items {
		// entries that are not objects still count as a line with defaults
		it := asMap(raw)
		out.LineItems = append(out.LineItems, entity.LineItem{
			SKU:         stringOr("", it, "sku"),
			Title:       stringOr(constants.UnknownItem, it, "title", "name"),
			Description: stringOr("", it, "description"),
			Qty:         amountOr(1, it, "qty", "quantity"),
			Rate:        amountOr(0, it, "rate", "unitPrice"),
			Total:       amountOr(0, it, "total", "amount"),
		})
	}
	return out
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// stringOr returns the first non-blank string under keys, else def.
func stringOr(def string, m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch t := m[k].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return def
}

// amountOr returns the first parsable number under keys, else def. Parsed
// values that are negative or non-finite become 0.
func amountOr(def float64, m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if f, ok := parseAmount(m[k]); ok {
			if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
				return 0
			}
			return f
		}
	}
	return def
}

var amountReplacer = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "", "\u00a0", "")

func parseAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := amountReplacer.Replace(strings.TrimSpace(t))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
