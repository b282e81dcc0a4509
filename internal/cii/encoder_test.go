package cii_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturio/invoice-engine/internal/cii"
	"github.com/facturio/invoice-engine/internal/core/domain"
)

func sampleSeller() domain.CompanyInfo {
	return domain.CompanyInfo{
		Name:      "Facturio SAS",
		Address:   "10 rue des Lilas, 69003 Lyon",
		Siret:     "98765432109876",
		VATNumber: "FR98765432109",
	}
}

func sampleInvoice() domain.Invoice {
	issue := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return domain.Invoice{
		InvoiceNumber:           "INV2025042",
		Status:                  domain.StatusDraft,
		CustomerName:            "ACME SARL",
		CustomerAddress:         "1 rue de la Paix, 75002 Paris",
		CustomerVATNumber:       "FR12345678901",
		IssueDate:               issue,
		DeliveryDate:            issue,
		DueDate:                 issue.AddDate(0, 0, 30),
		PaymentTermsDays:        30,
		LatePaymentInterestRate: decimal.NewFromFloat(13.5),
		RecoveryIndemnity:       decimal.NewFromInt(40),
		TotalHT:                 decimal.NewFromInt(150),
		TotalTVA:                decimal.NewFromInt(25),
		TotalTTC:                decimal.NewFromInt(175),
		Items: []domain.InvoiceItem{
			{
				LineNumber:  1,
				Description: "Développement",
				Quantity:    decimal.NewFromInt(1),
				Unit:        "jour",
				UnitPriceHT: decimal.NewFromInt(100),
				VATRate:     decimal.NewFromInt(20),
				TotalHT:     decimal.NewFromInt(100),
				TotalTVA:    decimal.NewFromInt(20),
				TotalTTC:    decimal.NewFromInt(120),
			},
			{
				LineNumber:  2,
				Description: "Hébergement",
				Quantity:    decimal.NewFromInt(1),
				Unit:        "pièce",
				UnitPriceHT: decimal.NewFromInt(50),
				VATRate:     decimal.NewFromInt(10),
				TotalHT:     decimal.NewFromInt(50),
				TotalTVA:    decimal.NewFromInt(5),
				TotalTTC:    decimal.NewFromInt(55),
			},
		},
	}
}

func TestEncode_MandatorySections(t *testing.T) {
	data, err := cii.Encode(sampleInvoice(), sampleSeller())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, "urn:factur-x.eu:1p0:basic")
	assert.Contains(t, out, "<ram:ID>INV2025042</ram:ID>")
	assert.Contains(t, out, "<ram:TypeCode>380</ram:TypeCode>")
	assert.Contains(t, out, `<udt:DateTimeString format="102">20250601</udt:DateTimeString>`)
	assert.Contains(t, out, `<ram:ID schemeID="SIRET">98765432109876</ram:ID>`)
	assert.Contains(t, out, `<ram:ID schemeID="VA">FR12345678901</ram:ID>`)
	assert.Contains(t, out, "<ram:InvoiceCurrencyCode>EUR</ram:InvoiceCurrencyCode>")
	assert.Contains(t, out, "<ram:GrandTotalAmount>175.00</ram:GrandTotalAmount>")
	assert.Contains(t, out, "<ram:DuePayableAmount>175.00</ram:DuePayableAmount>")
}

func TestEncode_TaxBreakdownPerRate(t *testing.T) {
	data, err := cii.Encode(sampleInvoice(), sampleSeller())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "<ram:BasisAmount>100.00</ram:BasisAmount>")
	assert.Contains(t, out, "<ram:CalculatedAmount>20.00</ram:CalculatedAmount>")
	assert.Contains(t, out, "<ram:BasisAmount>50.00</ram:BasisAmount>")
	assert.Contains(t, out, "<ram:CalculatedAmount>5.00</ram:CalculatedAmount>")
}

func TestEncode_CreditNoteTypeCode(t *testing.T) {
	inv := sampleInvoice()
	inv.Status = domain.StatusCreditNote

	data, err := cii.Encode(inv, sampleSeller())
	require.NoError(t, err)

	assert.Contains(t, string(data), "<ram:TypeCode>381</ram:TypeCode>")
}

func TestEncode_Deterministic(t *testing.T) {
	inv := sampleInvoice()
	seller := sampleSeller()

	first, err := cii.Encode(inv, seller)
	require.NoError(t, err)
	second, err := cii.Encode(inv, seller)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncode_OmitsBuyerTaxRegistrationWhenAbsent(t *testing.T) {
	inv := sampleInvoice()
	inv.CustomerVATNumber = ""

	data, err := cii.Encode(inv, sampleSeller())
	require.NoError(t, err)

	assert.NotContains(t, string(data), "FR12345678901")
}

func TestUnitCode(t *testing.T) {
	assert.Equal(t, "DAY", cii.UnitCode("jour"))
	assert.Equal(t, "HUR", cii.UnitCode("heure"))
	assert.Equal(t, "C62", cii.UnitCode("pièce"))
	assert.Equal(t, "KGM", cii.UnitCode("kg"))
	assert.Equal(t, "MTK", cii.UnitCode("m²"))
	assert.Equal(t, "C62", cii.UnitCode("carton"))
}
