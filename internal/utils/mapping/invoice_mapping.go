// Package mapping converts between domain aggregates and database models.
// Optional string fields are empty in the domain and NULL in the database.
package mapping

import (
	"github.com/facturio/invoice-engine/internal/core/domain"
	"github.com/facturio/invoice-engine/internal/models"
)

func toNullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ToModelInvoice converts a domain Invoice to its database model. Items are
// mapped separately.
func ToModelInvoice(d domain.Invoice) models.Invoice {
	return models.Invoice{
		InvoiceID:               d.InvoiceID,
		InvoiceNumber:           d.InvoiceNumber,
		Status:                  string(d.Status),
		CustomerName:            d.CustomerName,
		CustomerAddress:         d.CustomerAddress,
		CustomerSiret:           toNullable(d.CustomerSiret),
		CustomerVATNumber:       toNullable(d.CustomerVATNumber),
		CustomerEmail:           toNullable(d.CustomerEmail),
		CustomerPhone:           toNullable(d.CustomerPhone),
		IssueDate:               d.IssueDate,
		DeliveryDate:            d.DeliveryDate,
		DueDate:                 d.DueDate,
		PaymentTermsDays:        d.PaymentTermsDays,
		LatePaymentInterestRate: d.LatePaymentInterestRate,
		RecoveryIndemnity:       d.RecoveryIndemnity,
		VATMention:              toNullable(d.VATMention),
		Notes:                   toNullable(d.Notes),
		TotalHT:                 d.TotalHT,
		TotalTVA:                d.TotalTVA,
		TotalTTC:                d.TotalTTC,
		OriginalInvoiceID:       d.OriginalInvoiceID,
		PDFPath:                 toNullable(d.PDFPath),
		PDFHash:                 toNullable(d.PDFHash),
		ValidatedAt:             d.ValidatedAt,
		PaidAt:                  d.PaidAt,
		AuditFields: models.AuditFields{
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
	}
}

// ToDomainInvoice converts a database model (plus its items) to the domain
// aggregate.
func ToDomainInvoice(m models.Invoice, items []models.InvoiceItem) domain.Invoice {
	domainItems := make([]domain.InvoiceItem, len(items))
	for i, item := range items {
		domainItems[i] = ToDomainInvoiceItem(item)
	}

	return domain.Invoice{
		InvoiceID:               m.InvoiceID,
		InvoiceNumber:           m.InvoiceNumber,
		Status:                  domain.InvoiceStatus(m.Status),
		CustomerName:            m.CustomerName,
		CustomerAddress:         m.CustomerAddress,
		CustomerSiret:           fromNullable(m.CustomerSiret),
		CustomerVATNumber:       fromNullable(m.CustomerVATNumber),
		CustomerEmail:           fromNullable(m.CustomerEmail),
		CustomerPhone:           fromNullable(m.CustomerPhone),
		IssueDate:               m.IssueDate,
		DeliveryDate:            m.DeliveryDate,
		DueDate:                 m.DueDate,
		PaymentTermsDays:        m.PaymentTermsDays,
		LatePaymentInterestRate: m.LatePaymentInterestRate,
		RecoveryIndemnity:       m.RecoveryIndemnity,
		VATMention:              fromNullable(m.VATMention),
		Notes:                   fromNullable(m.Notes),
		TotalHT:                 m.TotalHT,
		TotalTVA:                m.TotalTVA,
		TotalTTC:                m.TotalTTC,
		OriginalInvoiceID:       m.OriginalInvoiceID,
		PDFPath:                 fromNullable(m.PDFPath),
		PDFHash:                 fromNullable(m.PDFHash),
		ValidatedAt:             m.ValidatedAt,
		PaidAt:                  m.PaidAt,
		Items:                   domainItems,
		AuditFields: domain.AuditFields{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}
}

// ToModelInvoiceItem converts one domain line to its database model.
func ToModelInvoiceItem(invoiceID string, d domain.InvoiceItem) models.InvoiceItem {
	return models.InvoiceItem{
		InvoiceID:   invoiceID,
		LineNumber:  d.LineNumber,
		Description: d.Description,
		Quantity:    d.Quantity,
		Unit:        d.Unit,
		UnitPriceHT: d.UnitPriceHT,
		VATRate:     d.VATRate,
		Discount:    d.Discount,
		TotalHT:     d.TotalHT,
		TotalTVA:    d.TotalTVA,
		TotalTTC:    d.TotalTTC,
	}
}

// ToDomainInvoiceItem converts one database line to its domain form.
func ToDomainInvoiceItem(m models.InvoiceItem) domain.InvoiceItem {
	return domain.InvoiceItem{
		LineNumber:  m.LineNumber,
		Description: m.Description,
		Quantity:    m.Quantity,
		Unit:        m.Unit,
		UnitPriceHT: m.UnitPriceHT,
		VATRate:     m.VATRate,
		Discount:    m.Discount,
		TotalHT:     m.TotalHT,
		TotalTVA:    m.TotalTVA,
		TotalTTC:    m.TotalTTC,
	}
}
