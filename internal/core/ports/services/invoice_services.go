package services

import (
	"context"

	"github.com/facturio/invoice-engine/internal/core/domain"
	"github.com/facturio/invoice-engine/internal/dto"
)

// InvoiceReaderSvc defines read operations on invoices.
type InvoiceReaderSvc interface {
	// GetInvoiceByID retrieves an invoice with its items.
	GetInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// ListInvoices retrieves invoices ordered by creation date descending.
	ListInvoices(ctx context.Context, params dto.ListInvoicesParams) ([]domain.Invoice, error)

	// DownloadDocument returns the rendered document bytes for a validated
	// invoice. Fails with ErrInvalidState when no document exists.
	DownloadDocument(ctx context.Context, invoiceID string) (*dto.DocumentDownload, error)
}

// InvoiceWriterSvc defines the lifecycle operations that change invoice state.
type InvoiceWriterSvc interface {
	// CreateInvoice builds, validates and persists a new DRAFT invoice.
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*domain.Invoice, error)

	// UpdateInvoice replaces fields (and optionally the item collection) of
	// a DRAFT invoice. Immutable statuses are rejected with a LockedError.
	UpdateInvoice(ctx context.Context, invoiceID string, req dto.UpdateInvoiceRequest) (*domain.Invoice, error)

	// RemoveInvoice deletes a DRAFT invoice.
	RemoveInvoice(ctx context.Context, invoiceID string) error

	// ValidateInvoice runs compliance checks, renders the document and moves
	// the invoice from DRAFT to VALIDATED.
	ValidateInvoice(ctx context.Context, invoiceID string, branding *domain.Branding) (*domain.Invoice, error)

	// MarkInvoiceAsPaid moves a VALIDATED invoice to PAID.
	MarkInvoiceAsPaid(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// CreateCreditNote creates a new CREDIT_NOTE invoice with negated
	// amounts referencing a VALIDATED or PAID original.
	CreateCreditNote(ctx context.Context, originalInvoiceID string) (*domain.Invoice, error)
}

// InvoiceSvcFacade combines all invoice lifecycle operations.
type InvoiceSvcFacade interface {
	InvoiceReaderSvc
	InvoiceWriterSvc
}

// NumberGeneratorSvc produces sequential, collision-free invoice numbers.
type NumberGeneratorSvc interface {
	// NextNumber returns the next number for the given prefix, scoped to the
	// current year when year reset is enabled.
	NextNumber(ctx context.Context, prefix string) (string, error)
}

// ComplianceSvc checks invoices against the legal compliance rules.
type ComplianceSvc interface {
	ValidateInvoice(invoice *domain.Invoice) domain.ComplianceResult
}

// DocumentRendererSvc renders the human-readable invoice document and its
// structured sidecar, returning the artifact path and its SHA-256 hash.
type DocumentRendererSvc interface {
	Render(ctx context.Context, invoice domain.Invoice, branding *domain.Branding) (pdfPath, pdfHash string, err error)

	// ReadDocument loads a previously rendered artifact.
	ReadDocument(ctx context.Context, pdfPath string) ([]byte, error)
}

// EventPublisher delivers engine events to an external channel.
// Delivery is fire-and-forget from the engine's perspective.
type EventPublisher interface {
	PublishInvoiceCreated(ctx context.Context, event domain.InvoiceCreatedEvent) error
	Close() error
}

// ServiceContainer holds instances of all the application services.
type ServiceContainer struct {
	Invoice InvoiceSvcFacade
}
