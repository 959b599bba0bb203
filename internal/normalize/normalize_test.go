package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
	"github.com/joseph-ayodele/proposal-extractor/internal/reconcile"
)

func TestClientNamePrefersCompany(t *testing.T) {
	r := reconcile.Reconcile(entity.ValidatedExtraction{
		Client:     entity.Client{Name: "Dana", Company: "Reyes Holdings", Email: "d@r.example"},
		Project:    entity.Project{Address: "12 Harbor Way"},
		GrandTotal: 100,
		LineItems:  []entity.LineItem{{Title: "Scan", Description: "exterior", Qty: 2, Rate: 50, Total: 100}},
	})
	got := ToExtractionResult(r)

	assert.Equal(t, "Reyes Holdings", got.ClientName)
	assert.Equal(t, "12 Harbor Way", got.ProjectName)
	assert.Equal(t, "12 Harbor Way", got.ProjectAddress)
	assert.InDelta(t, 100.0, got.TotalPrice, 1e-9)
	assert.Equal(t, 85, got.Confidence)
	assert.Equal(t, []entity.Contact{{Name: "Dana", Email: "d@r.example", Company: "Reyes Holdings"}}, got.Contacts)
	assert.Equal(t, []entity.Service{{Name: "Scan", Description: "exterior", Quantity: 2, Price: 100}}, got.Services)
	assert.Empty(t, got.Warnings)
}

func TestClientNameFallsBackToName(t *testing.T) {
	got := ToExtractionResult(entity.ReconciledExtraction{Client: entity.Client{Name: "Dana"}})
	assert.Equal(t, "Dana", got.ClientName)
}

func TestContactsDroppedWithoutName(t *testing.T) {
	got := ToExtractionResult(entity.ReconciledExtraction{Client: entity.Client{Company: "Acme", Email: "a@acme.example"}})
	assert.Equal(t, "Acme", got.ClientName)
	assert.NotNil(t, got.Contacts)
	assert.Empty(t, got.Contacts)
}

func TestEmptyLineItemsScenario(t *testing.T) {
	got := ToExtractionResult(reconcile.Reconcile(entity.ValidatedExtraction{
		Client:     entity.Client{Name: "Pat"},
		Project:    entity.Project{Address: "9 Elm"},
		LineItems:  []entity.LineItem{},
		GrandTotal: 500,
	}))
	assert.Equal(t, 85, got.Confidence)
	assert.Empty(t, got.Services)
	assert.InDelta(t, 500.0, got.TotalPrice, 1e-9)
}

func TestPlaceholdersSerializeEmpty(t *testing.T) {
	b, err := json.Marshal(ToExtractionResult(entity.ReconciledExtraction{}))
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &m))
	assert.JSONEq(t, `[]`, string(m["areas"]))
	assert.JSONEq(t, `{}`, string(m["variables"]))
	assert.JSONEq(t, `[]`, string(m["unmappedFields"]))
	assert.JSONEq(t, `[]`, string(m["services"]))
	assert.JSONEq(t, `[]`, string(m["contacts"]))
	_, hasWarnings := m["warnings"]
	assert.False(t, hasWarnings)
}

func TestWarnings(t *testing.T) {
	got := ToExtractionResult(entity.ReconciledExtraction{
		IsDataConfused: true,
		Diverged:       true,
		Degraded:       true,
		RawLineItemSum: 130000,
		ServiceSum:     2000,
		GrandTotal:     3000,
	})
	require.Len(t, got.Warnings, 3)
	assert.Contains(t, got.Warnings[0], "5x")
}

func TestBlankClientFieldsAreTrimmed(t *testing.T) {
	got := ToExtractionResult(entity.ReconciledExtraction{Client: entity.Client{Name: "  Dana ", Company: "   "}})
	assert.Equal(t, "Dana", got.ClientName)
	assert.Equal(t, []entity.Contact{{Name: "Dana"}}, got.Contacts)

	got = ToExtractionResult(entity.ReconciledExtraction{Client: entity.Client{Name: " \t"}})
	assert.Empty(t, got.ClientName)
	assert.Empty(t, got.Contacts)
}
