package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditFields holds the creation/update timestamps stored on every row.
type AuditFields struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Invoice is the database representation of an invoice row. Nullable columns
// map to pointers.
type Invoice struct {
	InvoiceID     string `json:"invoiceID"`
	InvoiceNumber string `json:"invoiceNumber"`
	Status        string `json:"status"`

	CustomerName      string  `json:"customerName"`
	CustomerAddress   string  `json:"customerAddress"`
	CustomerSiret     *string `json:"customerSiret"`
	CustomerVATNumber *string `json:"customerVatNumber"`
	CustomerEmail     *string `json:"customerEmail"`
	CustomerPhone     *string `json:"customerPhone"`

	IssueDate    time.Time `json:"issueDate"`
	DeliveryDate time.Time `json:"deliveryDate"`
	DueDate      time.Time `json:"dueDate"`

	PaymentTermsDays        int             `json:"paymentTermsDays"`
	LatePaymentInterestRate decimal.Decimal `json:"latePaymentInterestRate"`
	RecoveryIndemnity       decimal.Decimal `json:"recoveryIndemnity"`
	VATMention              *string         `json:"vatMention"`
	Notes                   *string         `json:"notes"`

	TotalHT  decimal.Decimal `json:"totalHT"`
	TotalTVA decimal.Decimal `json:"totalTVA"`
	TotalTTC decimal.Decimal `json:"totalTTC"`

	OriginalInvoiceID *string `json:"originalInvoiceID"`
	PDFPath           *string `json:"pdfPath"`
	PDFHash           *string `json:"pdfHash"`

	ValidatedAt *time.Time `json:"validatedAt"`
	PaidAt      *time.Time `json:"paidAt"`

	AuditFields
}

// InvoiceItem is the database representation of one invoice line. The
// composite key is (invoice_id, line_number).
type InvoiceItem struct {
	InvoiceID   string          `json:"invoiceID"`
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
