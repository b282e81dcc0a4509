package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturio/invoice-engine/internal/apperrors"
	"github.com/facturio/invoice-engine/internal/core/domain"
	portsrepo "github.com/facturio/invoice-engine/internal/core/ports/repositories"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
	"github.com/facturio/invoice-engine/internal/dto"
	"github.com/facturio/invoice-engine/internal/middleware"
	"github.com/facturio/invoice-engine/internal/utils/amounts"
)

// Defaults applied when a creation request leaves the field empty. The
// interest rate and recovery indemnity follow the French statutory values.
const (
	defaultPaymentTermsDays = 30
	defaultUnit             = "pièce"
)

var (
	defaultInterestRate      = decimal.NewFromFloat(13.5)
	defaultRecoveryIndemnity = decimal.NewFromInt(40)
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// InvoiceService owns the invoice state machine. It is the only component
// that persists state changes; numbering, compliance, rendering and event
// publication are delegated to the injected collaborators.
type InvoiceService struct {
	invoiceRepo portsrepo.InvoiceRepositoryWithTx
	numberGen   portssvc.NumberGeneratorSvc
	compliance  portssvc.ComplianceSvc
	renderer    portssvc.DocumentRendererSvc
	publisher   portssvc.EventPublisher

	invoicePrefix    string
	creditNotePrefix string
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(
	repo portsrepo.InvoiceRepositoryWithTx,
	numberGen portssvc.NumberGeneratorSvc,
	compliance portssvc.ComplianceSvc,
	renderer portssvc.DocumentRendererSvc,
	publisher portssvc.EventPublisher,
	invoicePrefix, creditNotePrefix string,
) portssvc.InvoiceSvcFacade {
	return &InvoiceService{
		invoiceRepo:      repo,
		numberGen:        numberGen,
		compliance:       compliance,
		renderer:         renderer,
		publisher:        publisher,
		invoicePrefix:    invoicePrefix,
		creditNotePrefix: creditNotePrefix,
	}
}

var _ portssvc.InvoiceSvcFacade = (*InvoiceService)(nil)

// CreateInvoice builds a new DRAFT invoice: number generation, line totals,
// compliance check, persistence, then a fire-and-forget creation event.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	issueDate, err := time.Parse(dto.DateLayout, req.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid issue date: %s", apperrors.ErrValidation, req.IssueDate)
	}
	deliveryDate, err := time.Parse(dto.DateLayout, req.DeliveryDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid delivery date: %s", apperrors.ErrValidation, req.DeliveryDate)
	}

	number, err := s.numberGen.NextNumber(ctx, s.invoicePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	items := buildItems(req.Items)
	items = amounts.ComputeLineTotals(items)
	totalHT, totalTVA, totalTTC := amounts.SumInvoiceTotals(items)

	paymentTermsDays := defaultPaymentTermsDays
	if req.PaymentTermsDays != nil {
		paymentTermsDays = *req.PaymentTermsDays
	}
	interestRate := defaultInterestRate
	if req.LatePaymentInterestRate != nil {
		interestRate = *req.LatePaymentInterestRate
	}
	indemnity := defaultRecoveryIndemnity
	if req.RecoveryIndemnity != nil {
		indemnity = *req.RecoveryIndemnity
	}

	dueDate := issueDate.AddDate(0, 0, paymentTermsDays)
	if req.DueDate != "" {
		dueDate, err = time.Parse(dto.DateLayout, req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid due date: %s", apperrors.ErrValidation, req.DueDate)
		}
	}

	now := time.Now()
	invoice := domain.Invoice{
		InvoiceID:               uuid.NewString(),
		InvoiceNumber:           number,
		Status:                  domain.StatusDraft,
		CustomerName:            req.CustomerName,
		CustomerAddress:         req.CustomerAddress,
		CustomerSiret:           req.CustomerSiret,
		CustomerVATNumber:       req.CustomerVATNumber,
		CustomerEmail:           req.CustomerEmail,
		CustomerPhone:           req.CustomerPhone,
		IssueDate:               issueDate,
		DeliveryDate:            deliveryDate,
		DueDate:                 dueDate,
		PaymentTermsDays:        paymentTermsDays,
		LatePaymentInterestRate: interestRate,
		RecoveryIndemnity:       indemnity,
		VATMention:              req.VATMention,
		Notes:                   req.Notes,
		TotalHT:                 totalHT,
		TotalTVA:                totalTVA,
		TotalTTC:                totalTTC,
		Items:                   items,
		AuditFields: domain.AuditFields{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if result := s.compliance.ValidateInvoice(&invoice); !result.IsValid {
		logger.Warn("Invoice creation rejected by compliance checks",
			slog.String("invoice_number", number), slog.Int("error_count", len(result.Errors)))
		return nil, &apperrors.ComplianceError{Errors: result.Errors, Warnings: result.Warnings}
	}

	if err := s.invoiceRepo.SaveInvoice(ctx, invoice); err != nil {
		logger.Error("Failed to save invoice", slog.String("error", err.Error()), slog.String("invoice_number", number))
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	event := domain.InvoiceCreatedEvent{
		EventID:       uuid.NewString(),
		Timestamp:     now,
		CorrelationID: uuid.NewString(),
		InvoiceID:     invoice.InvoiceID,
		CustomerSiret: invoice.CustomerSiret,
		TotalTTC:      invoice.TotalTTC,
		DueDate:       invoice.DueDate,
	}
	if err := s.publisher.PublishInvoiceCreated(ctx, event); err != nil {
		// Fire-and-forget: a publish failure never fails the create.
		logger.Warn("Failed to publish invoice created event",
			slog.String("error", err.Error()), slog.String("invoice_id", invoice.InvoiceID))
	}

	logger.Info("Invoice created", slog.String("invoice_id", invoice.InvoiceID), slog.String("invoice_number", number))
	return &invoice, nil
}

// UpdateInvoice applies a patch to a DRAFT invoice. A replaced item
// collection is recomputed and the whole invoice re-validated.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, invoiceID string, req dto.UpdateInvoiceRequest) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status.IsImmutable() {
		return nil, &apperrors.LockedError{InvoiceNumber: invoice.InvoiceNumber, Status: string(invoice.Status)}
	}

	if req.CustomerName != nil {
		invoice.CustomerName = *req.CustomerName
	}
	if req.CustomerAddress != nil {
		invoice.CustomerAddress = *req.CustomerAddress
	}
	if req.CustomerSiret != nil {
		invoice.CustomerSiret = *req.CustomerSiret
	}
	if req.CustomerVATNumber != nil {
		invoice.CustomerVATNumber = *req.CustomerVATNumber
	}
	if req.CustomerEmail != nil {
		invoice.CustomerEmail = *req.CustomerEmail
	}
	if req.CustomerPhone != nil {
		invoice.CustomerPhone = *req.CustomerPhone
	}
	if req.IssueDate != nil {
		invoice.IssueDate, err = time.Parse(dto.DateLayout, *req.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid issue date: %s", apperrors.ErrValidation, *req.IssueDate)
		}
	}
	if req.DeliveryDate != nil {
		invoice.DeliveryDate, err = time.Parse(dto.DateLayout, *req.DeliveryDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid delivery date: %s", apperrors.ErrValidation, *req.DeliveryDate)
		}
	}
	if req.DueDate != nil {
		invoice.DueDate, err = time.Parse(dto.DateLayout, *req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid due date: %s", apperrors.ErrValidation, *req.DueDate)
		}
	}
	if req.PaymentTermsDays != nil {
		invoice.PaymentTermsDays = *req.PaymentTermsDays
	}
	if req.LatePaymentInterestRate != nil {
		invoice.LatePaymentInterestRate = *req.LatePaymentInterestRate
	}
	if req.RecoveryIndemnity != nil {
		invoice.RecoveryIndemnity = *req.RecoveryIndemnity
	}
	if req.VATMention != nil {
		invoice.VATMention = *req.VATMention
	}
	if req.Notes != nil {
		invoice.Notes = *req.Notes
	}

	if req.Items != nil {
		items := amounts.ComputeLineTotals(buildItems(*req.Items))
		invoice.Items = items
		invoice.TotalHT, invoice.TotalTVA, invoice.TotalTTC = amounts.SumInvoiceTotals(items)
	}

	if result := s.compliance.ValidateInvoice(invoice); !result.IsValid {
		return nil, &apperrors.ComplianceError{Errors: result.Errors, Warnings: result.Warnings}
	}

	invoice.UpdatedAt = time.Now()
	if err := s.invoiceRepo.UpdateInvoice(ctx, *invoice); err != nil {
		logger.Error("Failed to update invoice", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	logger.Info("Invoice updated", slog.String("invoice_id", invoiceID))
	return invoice, nil
}

// RemoveInvoice deletes a DRAFT invoice and its items.
func (s *InvoiceService) RemoveInvoice(ctx context.Context, invoiceID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status.IsImmutable() {
		return &apperrors.LockedError{InvoiceNumber: invoice.InvoiceNumber, Status: string(invoice.Status)}
	}

	if err := s.invoiceRepo.DeleteInvoice(ctx, invoiceID); err != nil {
		logger.Error("Failed to delete invoice", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	logger.Info("Invoice deleted", slog.String("invoice_id", invoiceID))
	return nil
}

// ValidateInvoice moves a DRAFT invoice to VALIDATED: compliance checks,
// document rendering, then an atomic status+path+hash update. A rendering
// failure aborts with no status change.
func (s *InvoiceService) ValidateInvoice(ctx context.Context, invoiceID string, branding *domain.Branding) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != domain.StatusDraft {
		return nil, fmt.Errorf("%w: cannot validate invoice %s in status %s",
			apperrors.ErrInvalidState, invoice.InvoiceNumber, invoice.Status)
	}

	if result := s.compliance.ValidateInvoice(invoice); !result.IsValid {
		logger.Warn("Invoice validation rejected by compliance checks",
			slog.String("invoice_number", invoice.InvoiceNumber), slog.Int("error_count", len(result.Errors)))
		return nil, &apperrors.ComplianceError{Errors: result.Errors, Warnings: result.Warnings}
	}

	pdfPath, pdfHash, err := s.renderer.Render(ctx, *invoice, branding)
	if err != nil {
		logger.Error("Failed to render invoice document", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		return nil, fmt.Errorf("%w: failed to render invoice document: %v", apperrors.ErrInternal, err)
	}

	validatedAt := time.Now()
	if err := s.invoiceRepo.MarkValidated(ctx, invoiceID, pdfPath, pdfHash, validatedAt); err != nil {
		logger.Error("Failed to persist validation", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		return nil, fmt.Errorf("failed to validate invoice: %w", err)
	}

	invoice.Status = domain.StatusValidated
	invoice.PDFPath = pdfPath
	invoice.PDFHash = pdfHash
	invoice.ValidatedAt = &validatedAt
	invoice.UpdatedAt = validatedAt

	logger.Info("Invoice validated",
		slog.String("invoice_id", invoiceID),
		slog.String("invoice_number", invoice.InvoiceNumber),
		slog.String("pdf_hash", pdfHash))
	return invoice, nil
}

// MarkInvoiceAsPaid moves a VALIDATED invoice to PAID.
func (s *InvoiceService) MarkInvoiceAsPaid(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != domain.StatusValidated {
		return nil, fmt.Errorf("%w: cannot mark invoice %s as paid in status %s",
			apperrors.ErrInvalidState, invoice.InvoiceNumber, invoice.Status)
	}

	paidAt := time.Now()
	if err := s.invoiceRepo.MarkPaid(ctx, invoiceID, paidAt); err != nil {
		logger.Error("Failed to mark invoice as paid", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		return nil, fmt.Errorf("failed to mark invoice as paid: %w", err)
	}

	invoice.Status = domain.StatusPaid
	invoice.PaidAt = &paidAt
	invoice.UpdatedAt = paidAt

	logger.Info("Invoice marked as paid", slog.String("invoice_id", invoiceID))
	return invoice, nil
}

// CreateCreditNote builds a new CREDIT_NOTE aggregate reversing a VALIDATED
// or PAID invoice. Every monetary field is negated; the original is never
// mutated.
func (s *InvoiceService) CreateCreditNote(ctx context.Context, originalInvoiceID string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.invoiceRepo.FindInvoiceByID(ctx, originalInvoiceID)
	if err != nil {
		return nil, err
	}
	if original.Status != domain.StatusValidated && original.Status != domain.StatusPaid {
		return nil, fmt.Errorf("%w: cannot credit invoice %s in status %s",
			apperrors.ErrInvalidState, original.InvoiceNumber, original.Status)
	}

	number, err := s.numberGen.NextNumber(ctx, s.creditNotePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate credit note number: %w", err)
	}

	items := make([]domain.InvoiceItem, len(original.Items))
	for i, item := range original.Items {
		item.UnitPriceHT = item.UnitPriceHT.Neg()
		item.Discount = item.Discount.Neg()
		item.TotalHT = item.TotalHT.Neg()
		item.TotalTVA = item.TotalTVA.Neg()
		item.TotalTTC = item.TotalTTC.Neg()
		items[i] = item
	}

	now := time.Now()
	creditNote := domain.Invoice{
		InvoiceID:               uuid.NewString(),
		InvoiceNumber:           number,
		Status:                  domain.StatusCreditNote,
		CustomerName:            original.CustomerName,
		CustomerAddress:         original.CustomerAddress,
		CustomerSiret:           original.CustomerSiret,
		CustomerVATNumber:       original.CustomerVATNumber,
		CustomerEmail:           original.CustomerEmail,
		CustomerPhone:           original.CustomerPhone,
		IssueDate:               original.IssueDate,
		DeliveryDate:            original.DeliveryDate,
		DueDate:                 original.DueDate,
		PaymentTermsDays:        original.PaymentTermsDays,
		LatePaymentInterestRate: original.LatePaymentInterestRate,
		RecoveryIndemnity:       original.RecoveryIndemnity,
		VATMention:              original.VATMention,
		Notes:                   fmt.Sprintf("Avoir pour facture %s", original.InvoiceNumber),
		TotalHT:                 original.TotalHT.Neg(),
		TotalTVA:                original.TotalTVA.Neg(),
		TotalTTC:                original.TotalTTC.Neg(),
		OriginalInvoiceID:       &original.InvoiceID,
		Items:                   items,
		AuditFields: domain.AuditFields{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if err := s.invoiceRepo.SaveInvoice(ctx, creditNote); err != nil {
		logger.Error("Failed to save credit note", slog.String("error", err.Error()), slog.String("original_invoice_id", originalInvoiceID))
		return nil, fmt.Errorf("failed to create credit note: %w", err)
	}

	logger.Info("Credit note created",
		slog.String("credit_note_id", creditNote.InvoiceID),
		slog.String("credit_note_number", number),
		slog.String("original_invoice_id", originalInvoiceID))
	return &creditNote, nil
}

// GetInvoiceByID retrieves an invoice with its items.
func (s *InvoiceService) GetInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
}

// ListInvoices retrieves invoices ordered by creation date descending.
func (s *InvoiceService) ListInvoices(ctx context.Context, params dto.ListInvoicesParams) ([]domain.Invoice, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	invoices, err := s.invoiceRepo.ListInvoices(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	if invoices == nil {
		invoices = []domain.Invoice{}
	}
	return invoices, nil
}

// DownloadDocument returns the rendered document of a validated invoice.
func (s *InvoiceService) DownloadDocument(ctx context.Context, invoiceID string) (*dto.DocumentDownload, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.PDFPath == "" {
		return nil, fmt.Errorf("%w: invoice %s has no rendered document",
			apperrors.ErrInvalidState, invoice.InvoiceNumber)
	}

	data, err := s.renderer.ReadDocument(ctx, invoice.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rendered document: %v", apperrors.ErrInternal, err)
	}

	return &dto.DocumentDownload{
		FileName:      filepath.Base(invoice.PDFPath),
		InvoiceNumber: invoice.InvoiceNumber,
		Data:          data,
	}, nil
}

func buildItems(reqs []dto.CreateInvoiceItemRequest) []domain.InvoiceItem {
	items := make([]domain.InvoiceItem, len(reqs))
	for i, r := range reqs {
		unit := r.Unit
		if unit == "" {
			unit = defaultUnit
		}
		items[i] = domain.InvoiceItem{
			Description: r.Description,
			Quantity:    r.Quantity,
			Unit:        unit,
			UnitPriceHT: r.UnitPriceHT,
			VATRate:     r.VATRate,
			Discount:    r.Discount,
		}
	}
	return items
}
