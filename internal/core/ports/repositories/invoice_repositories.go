package repositories

import (
	"context"
	"time"

	"github.com/facturio/invoice-engine/internal/core/domain"
)

// InvoiceReader defines read operations for invoice data.
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice with its items by its unique identifier.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// FindInvoiceByNumber retrieves an invoice with its items by its invoice number.
	FindInvoiceByNumber(ctx context.Context, invoiceNumber string) (*domain.Invoice, error)

	// ListInvoices retrieves invoices (with items) ordered by creation date descending.
	ListInvoices(ctx context.Context, limit, offset int) ([]domain.Invoice, error)
}

// NumberReader defines the queries the number generator needs.
type NumberReader interface {
	// FindLastNumberByPrefix returns the invoice number with the given prefix
	// that is greatest when ordered by (length, value), or ErrNotFound when
	// no number carries the prefix.
	FindLastNumberByPrefix(ctx context.Context, prefix string) (string, error)

	// ListNumbersByPrefix returns every invoice number sharing the prefix.
	ListNumbersByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// InvoiceWriter defines write operations for invoice data.
type InvoiceWriter interface {
	// SaveInvoice persists a new invoice and all of its items atomically.
	SaveInvoice(ctx context.Context, invoice domain.Invoice) error

	// UpdateInvoice replaces the invoice's fields and its whole item
	// collection within one transaction.
	UpdateInvoice(ctx context.Context, invoice domain.Invoice) error

	// MarkValidated sets the VALIDATED status together with the rendered
	// document path, content hash and validation timestamp, atomically.
	MarkValidated(ctx context.Context, invoiceID string, pdfPath, pdfHash string, validatedAt time.Time) error

	// MarkPaid sets the PAID status and payment timestamp.
	MarkPaid(ctx context.Context, invoiceID string, paidAt time.Time) error

	// DeleteInvoice removes the invoice and its items.
	DeleteInvoice(ctx context.Context, invoiceID string) error
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces.
type InvoiceRepositoryFacade interface {
	InvoiceReader
	NumberReader
	InvoiceWriter
}

// InvoiceRepositoryWithTx extends the facade with transaction capabilities.
type InvoiceRepositoryWithTx interface {
	InvoiceRepositoryFacade
	TransactionManager
}

// RepositoryProvider holds all repository interfaces needed by services.
type RepositoryProvider struct {
	InvoiceRepo InvoiceRepositoryWithTx
}
