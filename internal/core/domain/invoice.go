package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus indicates the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft      InvoiceStatus = "DRAFT"
	StatusValidated  InvoiceStatus = "VALIDATED"
	StatusPaid       InvoiceStatus = "PAID"
	StatusCancelled  InvoiceStatus = "CANCELLED"
	StatusCreditNote InvoiceStatus = "CREDIT_NOTE"
)

// ImmutableStatuses lists the statuses after which no in-place mutation of an
// invoice or its items is allowed. The only permitted follow-up is creating a
// credit note referencing the invoice.
var ImmutableStatuses = []InvoiceStatus{
	StatusValidated,
	StatusPaid,
	StatusCancelled,
	StatusCreditNote,
}

// IsImmutable reports whether an invoice in this status rejects mutation.
func (s InvoiceStatus) IsImmutable() bool {
	for _, st := range ImmutableStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Invoice is the aggregate root of the invoicing engine. Items are an owned,
// ordered collection indexed by line number; they carry no identity outside
// their invoice and are replaced wholesale on update.
type Invoice struct {
	InvoiceID     string        `json:"invoiceID"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Status        InvoiceStatus `json:"status"`

	CustomerName      string `json:"customerName"`
	CustomerAddress   string `json:"customerAddress"`
	CustomerSiret     string `json:"customerSiret,omitempty"`
	CustomerVATNumber string `json:"customerVatNumber,omitempty"`
	CustomerEmail     string `json:"customerEmail,omitempty"`
	CustomerPhone     string `json:"customerPhone,omitempty"`

	IssueDate    time.Time `json:"issueDate"`
	DeliveryDate time.Time `json:"deliveryDate"`
	DueDate      time.Time `json:"dueDate"`

	PaymentTermsDays        int             `json:"paymentTermsDays"`
	LatePaymentInterestRate decimal.Decimal `json:"latePaymentInterestRate"`
	RecoveryIndemnity       decimal.Decimal `json:"recoveryIndemnity"`
	VATMention              string          `json:"vatMention,omitempty"`
	Notes                   string          `json:"notes,omitempty"`

	TotalHT  decimal.Decimal `json:"totalHT"`
	TotalTVA decimal.Decimal `json:"totalTVA"`
	TotalTTC decimal.Decimal `json:"totalTTC"`

	// OriginalInvoiceID links a credit note back to the invoice it reverses.
	OriginalInvoiceID *string `json:"originalInvoiceID,omitempty"`

	// PDFPath and PDFHash are set once, when the invoice is validated.
	PDFPath string `json:"pdfPath,omitempty"`
	PDFHash string `json:"pdfHash,omitempty"`

	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`

	Items []InvoiceItem `json:"items"`
	AuditFields
}

// IsCreditNote reports whether this invoice is a reversal document.
func (inv *Invoice) IsCreditNote() bool {
	return inv.Status == StatusCreditNote
}

// InvoiceItem is a single line of an invoice. Line numbers are contiguous
// starting at 1 and are reassigned whenever the item collection is replaced.
type InvoiceItem struct {
	LineNumber  int             `json:"lineNumber"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPriceHT decimal.Decimal `json:"unitPriceHT"`
	VATRate     decimal.Decimal `json:"vatRate"`
	Discount    decimal.Decimal `json:"discount"`
	TotalHT     decimal.Decimal `json:"totalHT"`
	TotalTVA    decimal.Decimal `json:"totalTVA"`
	TotalTTC    decimal.Decimal `json:"totalTTC"`
}
