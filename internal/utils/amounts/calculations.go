// Package amounts holds the pure monetary arithmetic of the invoicing
// engine. All outputs are rounded to 2 decimal places with half-up rounding
// at each computation step: line level first, then the invoice sums over the
// already-rounded line totals. Nothing here performs validation; a discount
// exceeding the gross line amount yields a negative total and is passed
// through unchanged for the compliance layer to judge.
package amounts

import (
	"sort"

	"github.com/facturio/invoice-engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeLineTotals fills TotalHT, TotalTVA and TotalTTC on every item and
// reassigns contiguous 1-based line numbers. The input slice is not
// modified; a new slice is returned.
func ComputeLineTotals(items []domain.InvoiceItem) []domain.InvoiceItem {
	out := make([]domain.InvoiceItem, len(items))
	for i, item := range items {
		item.LineNumber = i + 1
		item.TotalHT = item.Quantity.Mul(item.UnitPriceHT).Sub(item.Discount).Round(2)
		item.TotalTVA = item.TotalHT.Mul(item.VATRate).Div(hundred).Round(2)
		item.TotalTTC = item.TotalHT.Add(item.TotalTVA).Round(2)
		out[i] = item
	}
	return out
}

// SumInvoiceTotals computes the invoice-level totals as the sum of the line
// totals. The rounding rule is applied to the sums themselves, not
// re-derived from aggregates.
func SumInvoiceTotals(items []domain.InvoiceItem) (totalHT, totalTVA, totalTTC decimal.Decimal) {
	totalHT = decimal.Zero
	totalTVA = decimal.Zero
	totalTTC = decimal.Zero
	for _, item := range items {
		totalHT = totalHT.Add(item.TotalHT)
		totalTVA = totalTVA.Add(item.TotalTVA)
		totalTTC = totalTTC.Add(item.TotalTTC)
	}
	return totalHT.Round(2), totalTVA.Round(2), totalTTC.Round(2)
}

// TaxBucket is the aggregation of all lines sharing one VAT rate.
type TaxBucket struct {
	Rate  decimal.Decimal
	Basis decimal.Decimal
	Tax   decimal.Decimal
}

// GroupByVATRate aggregates line totals into one bucket per distinct VAT
// rate, sorted by rate descending so the result is deterministic.
func GroupByVATRate(items []domain.InvoiceItem) []TaxBucket {
	buckets := make([]TaxBucket, 0, 2)
	for _, item := range items {
		found := false
		for i := range buckets {
			if buckets[i].Rate.Equal(item.VATRate) {
				buckets[i].Basis = buckets[i].Basis.Add(item.TotalHT)
				buckets[i].Tax = buckets[i].Tax.Add(item.TotalTVA)
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, TaxBucket{Rate: item.VATRate, Basis: item.TotalHT, Tax: item.TotalTVA})
		}
	}

	// sort by rate descending for deterministic output
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Rate.GreaterThan(buckets[j].Rate)
	})
	return buckets
}
