package dto

import (
	"time"

	"github.com/facturio/invoice-engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for all invoice dates.
const DateLayout = "2006-01-02"

// CreateInvoiceItemRequest is one line of a create/update request.
type CreateInvoiceItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPriceHT decimal.Decimal `json:"unitPriceHT"`
	VATRate     decimal.Decimal `json:"vatRate"`
	Discount    decimal.Decimal `json:"discount"`
}

// CreateInvoiceRequest is the input of the create operation. Dates travel as
// YYYY-MM-DD strings; monetary values as JSON numbers decoded into decimals.
type CreateInvoiceRequest struct {
	CustomerName      string `json:"customerName" binding:"required,min=1,max=255"`
	CustomerAddress   string `json:"customerAddress" binding:"required,min=1,max=1000"`
	CustomerSiret     string `json:"customerSiret" binding:"omitempty,len=14,number"`
	CustomerVATNumber string `json:"customerVatNumber" binding:"omitempty"`
	CustomerEmail     string `json:"customerEmail" binding:"omitempty,email"`
	CustomerPhone     string `json:"customerPhone" binding:"omitempty"`

	IssueDate    string `json:"issueDate" binding:"required,datetime=2006-01-02"`
	DeliveryDate string `json:"deliveryDate" binding:"required,datetime=2006-01-02"`
	DueDate      string `json:"dueDate" binding:"omitempty,datetime=2006-01-02"`

	PaymentTermsDays        *int             `json:"paymentTermsDays" binding:"omitempty,min=1"`
	LatePaymentInterestRate *decimal.Decimal `json:"latePaymentInterestRate"`
	RecoveryIndemnity       *decimal.Decimal `json:"recoveryIndemnity"`
	VATMention              string           `json:"vatMention"`
	Notes                   string           `json:"notes"`

	Items []CreateInvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateInvoiceRequest is a patch: nil fields are left untouched. When Items
// is present the whole item collection is replaced and totals recomputed.
type UpdateInvoiceRequest struct {
	CustomerName      *string `json:"customerName" binding:"omitempty,min=1,max=255"`
	CustomerAddress   *string `json:"customerAddress" binding:"omitempty,min=1,max=1000"`
	CustomerSiret     *string `json:"customerSiret" binding:"omitempty,len=14,number"`
	CustomerVATNumber *string `json:"customerVatNumber"`
	CustomerEmail     *string `json:"customerEmail" binding:"omitempty,email"`
	CustomerPhone     *string `json:"customerPhone"`

	IssueDate    *string `json:"issueDate" binding:"omitempty,datetime=2006-01-02"`
	DeliveryDate *string `json:"deliveryDate" binding:"omitempty,datetime=2006-01-02"`
	DueDate      *string `json:"dueDate" binding:"omitempty,datetime=2006-01-02"`

	PaymentTermsDays        *int             `json:"paymentTermsDays" binding:"omitempty,min=1"`
	LatePaymentInterestRate *decimal.Decimal `json:"latePaymentInterestRate"`
	RecoveryIndemnity       *decimal.Decimal `json:"recoveryIndemnity"`
	VATMention              *string          `json:"vatMention"`
	Notes                   *string          `json:"notes"`

	Items *[]CreateInvoiceItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// ValidateInvoiceRequest is the optional body of the validate operation,
// carrying per-invoice branding overrides for the rendered document.
type ValidateInvoiceRequest struct {
	Branding *domain.Branding `json:"branding"`
}

// ListInvoicesParams holds pagination parameters for listing invoices.
type ListInvoicesParams struct {
	Limit  int
	Offset int
}

// DocumentDownload carries a rendered artifact back to the caller.
type DocumentDownload struct {
	FileName      string
	InvoiceNumber string
	Data          []byte
}

// InvoiceItemResponse is the API representation of one invoice line.
type InvoiceItemResponse struct {
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

// InvoiceResponse is the API representation of an invoice aggregate.
type InvoiceResponse struct {
	InvoiceID     string `json:"invoiceID"`
	InvoiceNumber string `json:"invoiceNumber"`
	Status        string `json:"status"`

	CustomerName      string `json:"customerName"`
	CustomerAddress   string `json:"customerAddress"`
	CustomerSiret     string `json:"customerSiret,omitempty"`
	CustomerVATNumber string `json:"customerVatNumber,omitempty"`
	CustomerEmail     string `json:"customerEmail,omitempty"`
	CustomerPhone     string `json:"customerPhone,omitempty"`

	IssueDate    string `json:"issueDate"`
	DeliveryDate string `json:"deliveryDate"`
	DueDate      string `json:"dueDate"`

	PaymentTermsDays        int             `json:"paymentTermsDays"`
	LatePaymentInterestRate decimal.Decimal `json:"latePaymentInterestRate"`
	RecoveryIndemnity       decimal.Decimal `json:"recoveryIndemnity"`
	VATMention              string          `json:"vatMention,omitempty"`
	Notes                   string          `json:"notes,omitempty"`

	TotalHT  decimal.Decimal `json:"totalHT"`
	TotalTVA decimal.Decimal `json:"totalTVA"`
	TotalTTC decimal.Decimal `json:"totalTTC"`

	OriginalInvoiceID *string `json:"originalInvoiceID,omitempty"`
	PDFPath           string  `json:"pdfPath,omitempty"`
	PDFHash           string  `json:"pdfHash,omitempty"`

	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Items []InvoiceItemResponse `json:"items"`
}

// ToInvoiceResponse converts a domain Invoice to its API representation.
func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = InvoiceItemResponse{
			LineNumber:  item.LineNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPriceHT: item.UnitPriceHT,
			VATRate:     item.VATRate,
			Discount:    item.Discount,
			TotalHT:     item.TotalHT,
			TotalTVA:    item.TotalTVA,
			TotalTTC:    item.TotalTTC,
		}
	}

	return InvoiceResponse{
		InvoiceID:               inv.InvoiceID,
		InvoiceNumber:           inv.InvoiceNumber,
		Status:                  string(inv.Status),
		CustomerName:            inv.CustomerName,
		CustomerAddress:         inv.CustomerAddress,
		CustomerSiret:           inv.CustomerSiret,
		CustomerVATNumber:       inv.CustomerVATNumber,
		CustomerEmail:           inv.CustomerEmail,
		CustomerPhone:           inv.CustomerPhone,
		IssueDate:               inv.IssueDate.Format(DateLayout),
		DeliveryDate:            inv.DeliveryDate.Format(DateLayout),
		DueDate:                 inv.DueDate.Format(DateLayout),
		PaymentTermsDays:        inv.PaymentTermsDays,
		LatePaymentInterestRate: inv.LatePaymentInterestRate,
		RecoveryIndemnity:       inv.RecoveryIndemnity,
		VATMention:              inv.VATMention,
		Notes:                   inv.Notes,
		TotalHT:                 inv.TotalHT,
		TotalTVA:                inv.TotalTVA,
		TotalTTC:                inv.TotalTTC,
		OriginalInvoiceID:       inv.OriginalInvoiceID,
		PDFPath:                 inv.PDFPath,
		PDFHash:                 inv.PDFHash,
		ValidatedAt:             inv.ValidatedAt,
		PaidAt:                  inv.PaidAt,
		CreatedAt:               inv.CreatedAt,
		UpdatedAt:               inv.UpdatedAt,
		Items:                   items,
	}
}

// ToInvoiceResponses converts a slice of domain invoices.
func ToInvoiceResponses(invoices []domain.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceResponse(&invoices[i])
	}
	return responses
}
