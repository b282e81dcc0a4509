package amounts_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturio/invoice-engine/internal/core/domain"
	"github.com/facturio/invoice-engine/internal/utils/amounts"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeLineTotals_SingleLine(t *testing.T) {
	items := amounts.ComputeLineTotals([]domain.InvoiceItem{
		{Quantity: dec("2"), UnitPriceHT: dec("100"), VATRate: dec("20")},
	})

	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].LineNumber)
	assert.True(t, items[0].TotalHT.Equal(dec("200")), "HT = %s", items[0].TotalHT)
	assert.True(t, items[0].TotalTVA.Equal(dec("40")), "TVA = %s", items[0].TotalTVA)
	assert.True(t, items[0].TotalTTC.Equal(dec("240")), "TTC = %s", items[0].TotalTTC)
}

func TestComputeLineTotals_DiscountAndRounding(t *testing.T) {
	// 3 x 33.335 = 100.005, rounds half-up to 100.01 before the discount has
	// already been subtracted; TVA rounds independently on the rounded base.
	items := amounts.ComputeLineTotals([]domain.InvoiceItem{
		{Quantity: dec("3"), UnitPriceHT: dec("33.335"), VATRate: dec("20"), Discount: dec("0")},
	})

	require.Len(t, items, 1)
	assert.Equal(t, "100.01", items[0].TotalHT.StringFixed(2))
	assert.Equal(t, "20.00", items[0].TotalTVA.StringFixed(2))
	assert.Equal(t, "120.01", items[0].TotalTTC.StringFixed(2))
}

func TestComputeLineTotals_HalfUpOnTVA(t *testing.T) {
	// HT 1.25 at 2.1% gives 0.026250, half-up to 0.03.
	items := amounts.ComputeLineTotals([]domain.InvoiceItem{
		{Quantity: dec("1"), UnitPriceHT: dec("1.25"), VATRate: dec("2.1")},
	})

	assert.Equal(t, "0.03", items[0].TotalTVA.StringFixed(2))
	assert.Equal(t, "1.28", items[0].TotalTTC.StringFixed(2))
}

func TestComputeLineTotals_OversizedDiscountGoesNegative(t *testing.T) {
	items := amounts.ComputeLineTotals([]domain.InvoiceItem{
		{Quantity: dec("1"), UnitPriceHT: dec("50"), VATRate: dec("20"), Discount: dec("80")},
	})

	assert.Equal(t, "-30.00", items[0].TotalHT.StringFixed(2))
	assert.Equal(t, "-6.00", items[0].TotalTVA.StringFixed(2))
	assert.Equal(t, "-36.00", items[0].TotalTTC.StringFixed(2))
}

func TestComputeLineTotals_ReassignsLineNumbers(t *testing.T) {
	items := amounts.ComputeLineTotals([]domain.InvoiceItem{
		{LineNumber: 7, Quantity: dec("1"), UnitPriceHT: dec("10"), VATRate: dec("20")},
		{LineNumber: 2, Quantity: dec("1"), UnitPriceHT: dec("10"), VATRate: dec("20")},
		{LineNumber: 9, Quantity: dec("1"), UnitPriceHT: dec("10"), VATRate: dec("20")},
	})

	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i+1, item.LineNumber)
	}
}

func TestComputeLineTotals_DoesNotMutateInput(t *testing.T) {
	input := []domain.InvoiceItem{
		{Quantity: dec("2"), UnitPriceHT: dec("100"), VATRate: dec("20")},
	}
	_ = amounts.ComputeLineTotals(input)

	assert.True(t, input[0].TotalHT.IsZero())
	assert.Equal(t, 0, input[0].LineNumber)
}

func TestSumInvoiceTotals_TwoRates(t *testing.T) {
	items := amounts.ComputeLineTotals([]domain.InvoiceItem{
		{Quantity: dec("1"), UnitPriceHT: dec("100"), VATRate: dec("20")},
		{Quantity: dec("1"), UnitPriceHT: dec("50"), VATRate: dec("10")},
	})

	ht, tva, ttc := amounts.SumInvoiceTotals(items)
	assert.Equal(t, "150.00", ht.StringFixed(2))
	assert.Equal(t, "25.00", tva.StringFixed(2))
	assert.Equal(t, "175.00", ttc.StringFixed(2))
}

func TestSumInvoiceTotals_SumsRoundedLineTotals(t *testing.T) {
	// Two lines of HT 10.005 each round to 10.01 individually, so the
	// invoice total is 20.02, not 20.01 as a single rounding of 20.01 would
	// give on the raw sum.
	items := amounts.ComputeLineTotals([]domain.InvoiceItem{
		{Quantity: dec("1"), UnitPriceHT: dec("10.005"), VATRate: dec("0")},
		{Quantity: dec("1"), UnitPriceHT: dec("10.005"), VATRate: dec("0")},
	})

	ht, _, _ := amounts.SumInvoiceTotals(items)
	assert.Equal(t, "20.02", ht.StringFixed(2))
}

func TestGroupByVATRate_BucketsAndOrder(t *testing.T) {
	items := amounts.ComputeLineTotals([]domain.InvoiceItem{
		{Quantity: dec("1"), UnitPriceHT: dec("50"), VATRate: dec("10")},
		{Quantity: dec("1"), UnitPriceHT: dec("100"), VATRate: dec("20")},
		{Quantity: dec("1"), UnitPriceHT: dec("30"), VATRate: dec("10")},
	})

	buckets := amounts.GroupByVATRate(items)
	require.Len(t, buckets, 2)

	assert.Equal(t, "20", buckets[0].Rate.String())
	assert.Equal(t, "100.00", buckets[0].Basis.StringFixed(2))
	assert.Equal(t, "20.00", buckets[0].Tax.StringFixed(2))

	assert.Equal(t, "10", buckets[1].Rate.String())
	assert.Equal(t, "80.00", buckets[1].Basis.StringFixed(2))
	assert.Equal(t, "8.00", buckets[1].Tax.StringFixed(2))
}

func TestGroupByVATRate_Empty(t *testing.T) {
	assert.Empty(t, amounts.GroupByVATRate(nil))
}
