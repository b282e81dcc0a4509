package services_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturio/invoice-engine/internal/core/domain"
	"github.com/facturio/invoice-engine/internal/core/services"
)

func compliantInvoice() *domain.Invoice {
	issue := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &domain.Invoice{
		InvoiceID:               "inv-1",
		InvoiceNumber:           "INV2025001",
		Status:                  domain.StatusDraft,
		CustomerName:            "ACME SARL",
		CustomerAddress:         "1 rue de la Paix, 75002 Paris",
		CustomerSiret:           "12345678901234",
		CustomerVATNumber:       "FR12345678901",
		IssueDate:               issue,
		DeliveryDate:            issue,
		DueDate:                 issue.AddDate(0, 0, 30),
		PaymentTermsDays:        30,
		LatePaymentInterestRate: decimal.NewFromFloat(13.5),
		RecoveryIndemnity:       decimal.NewFromInt(40),
		TotalHT:                 decimal.NewFromInt(200),
		TotalTVA:                decimal.NewFromInt(40),
		TotalTTC:                decimal.NewFromInt(240),
		Items: []domain.InvoiceItem{
			{
				LineNumber:  1,
				Description: "Prestation de conseil",
				Quantity:    decimal.NewFromInt(2),
				Unit:        "jour",
				UnitPriceHT: decimal.NewFromInt(100),
				VATRate:     decimal.NewFromInt(20),
				Discount:    decimal.Zero,
				TotalHT:     decimal.NewFromInt(200),
				TotalTVA:    decimal.NewFromInt(40),
				TotalTTC:    decimal.NewFromInt(240),
			},
		},
	}
}

func TestComplianceValidator_ValidInvoice(t *testing.T) {
	svc := services.NewComplianceService()

	result := svc.ValidateInvoice(compliantInvoice())

	require.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestComplianceValidator_MissingCustomerAddress(t *testing.T) {
	svc := services.NewComplianceService()
	inv := compliantInvoice()
	inv.CustomerAddress = ""

	result := svc.ValidateInvoice(inv)

	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "l'adresse du client est obligatoire")
}

func TestComplianceValidator_UnusualVATRateIsWarningOnly(t *testing.T) {
	svc := services.NewComplianceService()
	inv := compliantInvoice()
	inv.Items[0].VATRate = decimal.NewFromFloat(8.5)

	result := svc.ValidateInvoice(inv)

	assert.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "taux de TVA inhabituel")
}

func TestComplianceValidator_BadSiret(t *testing.T) {
	svc := services.NewComplianceService()
	inv := compliantInvoice()
	inv.CustomerSiret = "1234"

	result := svc.ValidateInvoice(inv)

	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "le SIRET du client doit comporter 14 chiffres")
}

func TestComplianceValidator_MissingSiretIsWarning(t *testing.T) {
	svc := services.NewComplianceService()
	inv := compliantInvoice()
	inv.CustomerSiret = ""

	result := svc.ValidateInvoice(inv)

	assert.True(t, result.IsValid)
	assert.NotEmpty(t, result.Warnings)
}

func TestComplianceValidator_OversizedDiscount(t *testing.T) {
	svc := services.NewComplianceService()
	inv := compliantInvoice()
	inv.Items[0].Discount = decimal.NewFromInt(500)
	inv.Items[0].TotalHT = decimal.NewFromInt(-300)
	inv.Items[0].TotalTVA = decimal.NewFromInt(-60)
	inv.Items[0].TotalTTC = decimal.NewFromInt(-360)
	inv.TotalHT = decimal.NewFromInt(-300)
	inv.TotalTVA = decimal.NewFromInt(-60)
	inv.TotalTTC = decimal.NewFromInt(-360)

	result := svc.ValidateInvoice(inv)

	require.False(t, result.IsValid)
}

func TestComplianceValidator_CreditNoteAllowsNegativeTotals(t *testing.T) {
	svc := services.NewComplianceService()
	inv := compliantInvoice()
	inv.Status = domain.StatusCreditNote
	neg := func(d decimal.Decimal) decimal.Decimal { return d.Neg() }
	inv.Items[0].UnitPriceHT = neg(inv.Items[0].UnitPriceHT)
	inv.Items[0].TotalHT = neg(inv.Items[0].TotalHT)
	inv.Items[0].TotalTVA = neg(inv.Items[0].TotalTVA)
	inv.Items[0].TotalTTC = neg(inv.Items[0].TotalTTC)
	inv.TotalHT = neg(inv.TotalHT)
	inv.TotalTVA = neg(inv.TotalTVA)
	inv.TotalTTC = neg(inv.TotalTTC)

	result := svc.ValidateInvoice(inv)

	assert.True(t, result.IsValid, "errors: %v", result.Errors)
}

func TestComplianceValidator_NoItems(t *testing.T) {
	svc := services.NewComplianceService()
	inv := compliantInvoice()
	inv.Items = nil
	inv.TotalHT = decimal.Zero
	inv.TotalTVA = decimal.Zero
	inv.TotalTTC = decimal.Zero

	result := svc.ValidateInvoice(inv)

	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "la facture doit comporter au moins une ligne")
}

func TestComplianceValidator_InconsistentTotals(t *testing.T) {
	svc := services.NewComplianceService()
	inv := compliantInvoice()
	inv.TotalTTC = decimal.NewFromInt(999)

	result := svc.ValidateInvoice(inv)

	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "incohérence entre total HT, TVA et TTC")
}
