package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/facturio/invoice-engine/internal/apperrors"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
	"github.com/facturio/invoice-engine/internal/dto"
	"github.com/facturio/invoice-engine/internal/middleware"
)

// invoiceHandler handles HTTP requests related to invoices.
type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
}

// newInvoiceHandler creates a new invoiceHandler.
func newInvoiceHandler(is portssvc.InvoiceSvcFacade) *invoiceHandler {
	return &invoiceHandler{
		invoiceService: is,
	}
}

// registerInvoiceRoutes registers routes related to invoices.
func registerInvoiceRoutes(rg *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade) {
	h := newInvoiceHandler(invoiceService)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.createInvoice)
		invoices.GET("", h.listInvoices)
		invoices.GET("/:id", h.getInvoice)
		invoices.PUT("/:id", h.updateInvoice)
		invoices.DELETE("/:id", h.deleteInvoice)
		invoices.POST("/:id/validate", h.validateInvoice)
		invoices.POST("/:id/mark-paid", h.markInvoiceAsPaid)
		invoices.POST("/:id/credit-note", h.createCreditNote)
		invoices.GET("/:id/document", h.downloadDocument)
	}
}

// respondError maps service errors to HTTP responses. Compliance failures
// carry the full error and warning lists; locked invoices answer 423.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var compErr *apperrors.ComplianceError
	var lockedErr *apperrors.LockedError

	switch {
	case errors.As(err, &compErr):
		logger.Warn("Compliance failure", slog.Int("error_count", len(compErr.Errors)))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invoice is not compliant",
			"errors":   compErr.Errors,
			"warnings": compErr.Warnings,
		})
	case errors.As(err, &lockedErr):
		logger.Warn("Attempted mutation of locked invoice",
			slog.String("invoice_number", lockedErr.InvoiceNumber), slog.String("status", lockedErr.Status))
		c.JSON(http.StatusLocked, gin.H{
			"error":         "Invoice is locked",
			"invoiceNumber": lockedErr.InvoiceNumber,
			"status":        lockedErr.Status,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
	case errors.Is(err, apperrors.ErrInvalidState):
		logger.Warn("Invalid state for operation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled service error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// createInvoice godoc
// @Summary Create a new invoice
// @Description Creates a DRAFT invoice with computed totals and a generated sequential number
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]interface{} "Invalid input or compliance failure"
// @Failure 500 {object} map[string]string "Failed to create invoice"
// @Router /invoices [post]
func (h *invoiceHandler) createInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(invoice))
}

// listInvoices godoc
// @Summary List invoices
// @Description Retrieves invoices with their items, newest first
// @Tags invoices
// @Produce  json
// @Param   limit query int false "Page size (default 20, max 100)"
// @Param   offset query int false "Offset into the result set"
// @Success 200 {array} dto.InvoiceResponse
// @Failure 500 {object} map[string]string "Failed to list invoices"
// @Router /invoices [get]
func (h *invoiceHandler) listInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	invoices, err := h.invoiceService.ListInvoices(c.Request.Context(), dto.ListInvoicesParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponses(invoices))
}

// getInvoice godoc
// @Summary Get an invoice by ID
// @Tags invoices
// @Produce  json
// @Param   id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} map[string]string "Invoice not found"
// @Router /invoices/{id} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// updateInvoice godoc
// @Summary Update a DRAFT invoice
// @Description Applies a patch; a replaced item collection is recomputed and re-validated
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   id path string true "Invoice ID"
// @Param   invoice body dto.UpdateInvoiceRequest true "Fields to update"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]interface{} "Invalid input or compliance failure"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 423 {object} map[string]string "Invoice is locked"
// @Router /invoices/{id} [put]
func (h *invoiceHandler) updateInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// deleteInvoice godoc
// @Summary Delete a DRAFT invoice
// @Tags invoices
// @Param   id path string true "Invoice ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 423 {object} map[string]string "Invoice is locked"
// @Router /invoices/{id} [delete]
func (h *invoiceHandler) deleteInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if err := h.invoiceService.RemoveInvoice(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// validateInvoice godoc
// @Summary Validate a DRAFT invoice
// @Description Runs compliance checks, renders the document and moves the invoice to VALIDATED
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   id path string true "Invoice ID"
// @Param   body body dto.ValidateInvoiceRequest false "Optional branding overrides"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]interface{} "Compliance failure or invalid state"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Router /invoices/{id}/validate [post]
func (h *invoiceHandler) validateInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.ValidateInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for ValidateInvoice", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}

	invoice, err := h.invoiceService.ValidateInvoice(c.Request.Context(), c.Param("id"), req.Branding)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// markInvoiceAsPaid godoc
// @Summary Mark a VALIDATED invoice as paid
// @Tags invoices
// @Produce  json
// @Param   id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid state"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Router /invoices/{id}/mark-paid [post]
func (h *invoiceHandler) markInvoiceAsPaid(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	invoice, err := h.invoiceService.MarkInvoiceAsPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// createCreditNote godoc
// @Summary Create a credit note for a VALIDATED or PAID invoice
// @Description Creates a new CREDIT_NOTE invoice with negated amounts referencing the original
// @Tags invoices
// @Produce  json
// @Param   id path string true "Original invoice ID"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid state"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Router /invoices/{id}/credit-note [post]
func (h *invoiceHandler) createCreditNote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	creditNote, err := h.invoiceService.CreateCreditNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(creditNote))
}

// downloadDocument godoc
// @Summary Download the rendered document of a validated invoice
// @Tags invoices
// @Produce  application/pdf
// @Param   id path string true "Invoice ID"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string "Invoice was never validated"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Router /invoices/{id}/document [get]
func (h *invoiceHandler) downloadDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	download, err := h.invoiceService.DownloadDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+download.FileName+`"`)
	c.Data(http.StatusOK, "application/pdf", download.Data)
}
