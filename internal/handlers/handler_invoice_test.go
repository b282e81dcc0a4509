package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/facturio/invoice-engine/internal/apperrors"
	"github.com/facturio/invoice-engine/internal/core/domain"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
	"github.com/facturio/invoice-engine/internal/dto"
	"github.com/facturio/invoice-engine/internal/handlers"
	"github.com/facturio/invoice-engine/internal/platform/config"
)

// --- Mock InvoiceService ---
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*domain.Invoice, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) UpdateInvoice(ctx context.Context, invoiceID string, req dto.UpdateInvoiceRequest) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) RemoveInvoice(ctx context.Context, invoiceID string) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

func (m *MockInvoiceService) ValidateInvoice(ctx context.Context, invoiceID string, branding *domain.Branding) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceID, branding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) MarkInvoiceAsPaid(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) CreateCreditNote(ctx context.Context, originalInvoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, originalInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) ListInvoices(ctx context.Context, params dto.ListInvoicesParams) ([]domain.Invoice, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) DownloadDocument(ctx context.Context, invoiceID string) (*dto.DocumentDownload, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DocumentDownload), args.Error(1)
}

var _ portssvc.InvoiceSvcFacade = (*MockInvoiceService)(nil)

// --- Test Suite ---
type InvoiceHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockService *MockInvoiceService
}

func (suite *InvoiceHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.mockService = new(MockInvoiceService)
	suite.router = gin.New()
	handlers.RegisterRoutes(suite.router, &config.Config{}, &portssvc.ServiceContainer{
		Invoice: suite.mockService,
	})
}

func handlerTestInvoice() *domain.Invoice {
	issue := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &domain.Invoice{
		InvoiceID:        "inv-1",
		InvoiceNumber:    "INV2025001",
		Status:           domain.StatusDraft,
		CustomerName:     "ACME SARL",
		CustomerAddress:  "1 rue de la Paix, 75002 Paris",
		IssueDate:        issue,
		DeliveryDate:     issue,
		DueDate:          issue.AddDate(0, 0, 30),
		PaymentTermsDays: 30,
		TotalHT:          decimal.NewFromInt(200),
		TotalTVA:         decimal.NewFromInt(40),
		TotalTTC:         decimal.NewFromInt(240),
	}
}

func (suite *InvoiceHandlerTestSuite) TestCreateInvoice_Created() {
	suite.mockService.On("CreateInvoice", mock.Anything, mock.AnythingOfType("dto.CreateInvoiceRequest")).
		Return(handlerTestInvoice(), nil).Once()

	body := map[string]any{
		"customerName":    "ACME SARL",
		"customerAddress": "1 rue de la Paix, 75002 Paris",
		"issueDate":       "2025-03-10",
		"deliveryDate":    "2025-03-10",
		"items": []map[string]any{
			{"description": "Prestation de conseil", "quantity": 2, "unitPriceHT": 100, "vatRate": 20},
		},
	}
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.InvoiceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("INV2025001", resp.InvoiceNumber)
	suite.Equal(string(domain.StatusDraft), resp.Status)
}

func (suite *InvoiceHandlerTestSuite) TestCreateInvoice_MissingCustomerNameRejected() {
	body := map[string]any{
		"customerAddress": "1 rue de la Paix, 75002 Paris",
		"issueDate":       "2025-03-10",
		"deliveryDate":    "2025-03-10",
		"items":           []map[string]any{{"description": "x"}},
	}
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockService.AssertNotCalled(suite.T(), "CreateInvoice", mock.Anything, mock.Anything)
}

func (suite *InvoiceHandlerTestSuite) TestCreateInvoice_ComplianceFailurePayload() {
	suite.mockService.On("CreateInvoice", mock.Anything, mock.Anything).
		Return(nil, &apperrors.ComplianceError{
			Errors:   []string{"l'adresse du client est obligatoire"},
			Warnings: []string{"SIRET du client absent (obligatoire pour les clients professionnels)"},
		}).Once()

	body := map[string]any{
		"customerName":    "ACME SARL",
		"customerAddress": "x",
		"issueDate":       "2025-03-10",
		"deliveryDate":    "2025-03-10",
		"items":           []map[string]any{{"description": "x"}},
	}
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
	var resp map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp["errors"], 1)
	suite.Len(resp["warnings"], 1)
}

func (suite *InvoiceHandlerTestSuite) TestUpdateInvoice_LockedAnswers423() {
	suite.mockService.On("UpdateInvoice", mock.Anything, "inv-1", mock.Anything).
		Return(nil, &apperrors.LockedError{InvoiceNumber: "INV2025001", Status: "VALIDATED"}).Once()

	payload := []byte(`{"customerName":"Autre client"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/invoices/inv-1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusLocked, w.Code)
	var resp map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("INV2025001", resp["invoiceNumber"])
	suite.Equal("VALIDATED", resp["status"])
}

func (suite *InvoiceHandlerTestSuite) TestGetInvoice_NotFound() {
	suite.mockService.On("GetInvoiceByID", mock.Anything, "missing").
		Return(nil, apperrors.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/missing", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *InvoiceHandlerTestSuite) TestValidateInvoice_PassesBranding() {
	validated := handlerTestInvoice()
	validated.Status = domain.StatusValidated
	suite.mockService.On("ValidateInvoice", mock.Anything, "inv-1", mock.MatchedBy(func(b *domain.Branding) bool {
		return b != nil && b.CompanyName == "Atelier Durand"
	})).Return(validated, nil).Once()

	payload := []byte(`{"branding":{"companyName":"Atelier Durand"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/inv-1/validate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *InvoiceHandlerTestSuite) TestMarkPaid_InvalidState() {
	suite.mockService.On("MarkInvoiceAsPaid", mock.Anything, "inv-1").
		Return(nil, apperrors.ErrInvalidState).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/inv-1/mark-paid", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *InvoiceHandlerTestSuite) TestDeleteInvoice_NoContent() {
	suite.mockService.On("RemoveInvoice", mock.Anything, "inv-1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/invoices/inv-1", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNoContent, w.Code)
}

func (suite *InvoiceHandlerTestSuite) TestDownloadDocument_ServesPDF() {
	suite.mockService.On("DownloadDocument", mock.Anything, "inv-1").
		Return(&dto.DocumentDownload{
			FileName:      "INV2025001.pdf",
			InvoiceNumber: "INV2025001",
			Data:          []byte("%PDF-1.4"),
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/inv-1/document", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("application/pdf", w.Header().Get("Content-Type"))
	suite.Contains(w.Header().Get("Content-Disposition"), "INV2025001.pdf")
	suite.Equal("%PDF-1.4", w.Body.String())
}

func (suite *InvoiceHandlerTestSuite) TestCreateCreditNote_Created() {
	creditNote := handlerTestInvoice()
	creditNote.InvoiceID = "cn-1"
	creditNote.InvoiceNumber = "AV2025001"
	creditNote.Status = domain.StatusCreditNote
	suite.mockService.On("CreateCreditNote", mock.Anything, "inv-1").Return(creditNote, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/inv-1/credit-note", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.InvoiceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("AV2025001", resp.InvoiceNumber)
	suite.Equal(string(domain.StatusCreditNote), resp.Status)
}

func TestInvoiceHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceHandlerTestSuite))
}
