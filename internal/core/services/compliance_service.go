package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/facturio/invoice-engine/internal/core/domain"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
)

// frenchVATRates are the rates in force in mainland France. Any other rate is
// flagged as a warning, not an error, since overseas territories use others.
var frenchVATRates = []decimal.Decimal{
	decimal.Zero,
	decimal.NewFromFloat(2.1),
	decimal.NewFromFloat(5.5),
	decimal.NewFromInt(10),
	decimal.NewFromInt(20),
}

// ComplianceService checks invoices against the mandatory-mention rules for
// French invoices. Blocking problems become errors, advisory ones warnings.
type ComplianceService struct{}

// NewComplianceService creates a new ComplianceService.
func NewComplianceService() portssvc.ComplianceSvc {
	return &ComplianceService{}
}

var _ portssvc.ComplianceSvc = (*ComplianceService)(nil)

// ValidateInvoice returns every rule violation at once so the caller can
// surface the full list instead of fixing problems one at a time.
func (s *ComplianceService) ValidateInvoice(invoice *domain.Invoice) domain.ComplianceResult {
	var errs, warnings []string

	isCreditNote := invoice.Status == domain.StatusCreditNote

	if strings.TrimSpace(invoice.InvoiceNumber) == "" {
		errs = append(errs, "le numéro de facture est obligatoire")
	}
	if strings.TrimSpace(invoice.CustomerName) == "" {
		errs = append(errs, "le nom du client est obligatoire")
	}
	if strings.TrimSpace(invoice.CustomerAddress) == "" {
		errs = append(errs, "l'adresse du client est obligatoire")
	}
	if invoice.IssueDate.IsZero() {
		errs = append(errs, "la date d'émission est obligatoire")
	}
	if invoice.DeliveryDate.IsZero() {
		errs = append(errs, "la date de livraison est obligatoire")
	}
	if invoice.DueDate.IsZero() {
		errs = append(errs, "la date d'échéance est obligatoire")
	} else if !invoice.IssueDate.IsZero() && invoice.DueDate.Before(invoice.IssueDate) {
		errs = append(errs, "la date d'échéance est antérieure à la date d'émission")
	}

	if invoice.CustomerSiret != "" && !isDigits(invoice.CustomerSiret, 14) {
		errs = append(errs, "le SIRET du client doit comporter 14 chiffres")
	}
	if invoice.CustomerSiret == "" {
		warnings = append(warnings, "SIRET du client absent (obligatoire pour les clients professionnels)")
	}
	if invoice.CustomerVATNumber == "" {
		warnings = append(warnings, "numéro de TVA intracommunautaire du client absent")
	}

	if invoice.PaymentTermsDays <= 0 {
		errs = append(errs, "le délai de paiement doit être strictement positif")
	}
	if invoice.LatePaymentInterestRate.IsZero() {
		warnings = append(warnings, "taux de pénalités de retard non renseigné")
	}
	if invoice.RecoveryIndemnity.IsZero() {
		warnings = append(warnings, "indemnité forfaitaire de recouvrement non renseignée")
	}

	if len(invoice.Items) == 0 {
		errs = append(errs, "la facture doit comporter au moins une ligne")
	}
	for _, item := range invoice.Items {
		line := fmt.Sprintf("ligne %d", item.LineNumber)
		if strings.TrimSpace(item.Description) == "" {
			errs = append(errs, line+": la désignation est obligatoire")
		}
		if !item.Quantity.IsPositive() {
			errs = append(errs, line+": la quantité doit être strictement positive")
		}
		if item.UnitPriceHT.IsNegative() && !isCreditNote {
			errs = append(errs, line+": le prix unitaire HT ne peut pas être négatif")
		}
		if item.Discount.IsNegative() {
			errs = append(errs, line+": la remise ne peut pas être négative")
		}
		if item.TotalHT.IsNegative() && !isCreditNote {
			errs = append(errs, line+": le total HT est négatif (remise supérieure au montant)")
		}
		if !rateIsKnown(item.VATRate) {
			warnings = append(warnings, fmt.Sprintf("%s: taux de TVA inhabituel (%s%%)", line, item.VATRate.String()))
		}
	}

	if invoice.TotalTTC.IsNegative() && !isCreditNote {
		errs = append(errs, "le total TTC est négatif")
	}
	if !invoice.TotalHT.Add(invoice.TotalTVA).Equal(invoice.TotalTTC) {
		errs = append(errs, "incohérence entre total HT, TVA et TTC")
	}

	return domain.ComplianceResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

func rateIsKnown(rate decimal.Decimal) bool {
	for _, r := range frenchVATRates {
		if rate.Equal(r) {
			return true
		}
	}
	return false
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
