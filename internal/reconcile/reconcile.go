// Package reconcile detects quantity/price confusion in extracted line items
// and resolves an effective price for each line.
package reconcile

import (
	"log/slog"
	"math"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
)

// Reconcile resolves effective prices and the confidence score. It never
// fails; inputs are assumed finite and non-negative.
func Reconcile(v entity.ValidatedExtraction) entity.ReconciledExtraction {
	grand := v.GrandTotal

	var rawSum float64
	for _, it := range v.LineItems {
		rawSum += naivePrice(it)
	}
	confused := grand > 0 && rawSum > grand*constants.ConfusionMultiplier

	items := make([]entity.ReconciledLineItem, 0, len(v.LineItems))
	var serviceSum float64
	for _, it := range v.LineItems {
		price := naivePrice(it)
		if confused {
			price = confusedPrice(it, grand, len(v.LineItems))
		}
		serviceSum += price
		items = append(items, entity.ReconciledLineItem{LineItem: it, Price: price})
	}

	confidence := constants.ConfidenceClean
	if confused {
		confidence = constants.ConfidenceConfused
	}

	return entity.ReconciledExtraction{
		Client:         v.Client,
		Project:        v.Project,
		LineItems:      items,
		GrandTotal:     grand,
		RawLineItemSum: rawSum,
		ServiceSum:     serviceSum,
		IsDataConfused: confused,
		Diverged:       grand > 0 && math.Abs(serviceSum-grand) >= grand*constants.DivergenceTolerance,
		Confidence:     confidence,
	}
}

func naivePrice(it entity.LineItem) float64 {
	if it.Total > 0 {
		return it.Total
	}
	return it.Rate * it.Qty
}

// confusedPrice prefers rate, then total, when either lies in (0, grand];
// otherwise the line gets an equal share of grand. count is > 0 whenever
// this is called because it is only reached while ranging over items.
func confusedPrice(it entity.LineItem, grand float64, count int) float64 {
	switch {
	case it.Rate > 0 && it.Rate <= grand:
		return it.Rate
	case it.Total > 0 && it.Total <= grand:
		return it.Total
	case count > 0:
		return grand / float64(count)
	default:
		return 0
	}
}

// Reconciler wraps Reconcile with logging.
type Reconciler struct {
	logger *slog.Logger
}

func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger}
}

func (r *Reconciler) Reconcile(v entity.ValidatedExtraction) entity.ReconciledExtraction {
	out := Reconcile(v)
	if out.IsDataConfused {
		r.logger.Warn("reconcile.confused",
			"raw_line_item_sum", out.RawLineItemSum,
			"grand_total", out.GrandTotal,
			"line_items", len(out.LineItems),
		)
	}
	if out.Diverged {
		r.logger.Warn("reconcile.diverged",
			"service_sum", out.ServiceSum,
			"grand_total", out.GrandTotal,
		)
	}
	r.logger.Debug("reconcile.ok", "confidence", out.Confidence, "service_sum", out.ServiceSum)
	return out
}
