package pdf_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturio/invoice-engine/internal/core/domain"
	"github.com/facturio/invoice-engine/internal/pdf"
)

func renderableInvoice() domain.Invoice {
	issue := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	return domain.Invoice{
		InvoiceNumber:           "INV2025007",
		Status:                  domain.StatusDraft,
		CustomerName:            "ACME SARL",
		CustomerAddress:         "1 rue de la Paix, 75002 Paris",
		IssueDate:               issue,
		DeliveryDate:            issue,
		DueDate:                 issue.AddDate(0, 0, 30),
		PaymentTermsDays:        30,
		LatePaymentInterestRate: decimal.NewFromFloat(13.5),
		RecoveryIndemnity:       decimal.NewFromInt(40),
		TotalHT:                 decimal.NewFromInt(200),
		TotalTVA:                decimal.NewFromInt(40),
		TotalTTC:                decimal.NewFromInt(240),
		Items: []domain.InvoiceItem{
			{
				LineNumber:  1,
				Description: "Prestation de conseil",
				Quantity:    decimal.NewFromInt(2),
				Unit:        "jour",
				UnitPriceHT: decimal.NewFromInt(100),
				VATRate:     decimal.NewFromInt(20),
				TotalHT:     decimal.NewFromInt(200),
				TotalTVA:    decimal.NewFromInt(40),
				TotalTTC:    decimal.NewFromInt(240),
			},
		},
	}
}

func testCompany() domain.CompanyInfo {
	return domain.CompanyInfo{
		Name:         "Facturio SAS",
		Address:      "10 rue des Lilas, 69003 Lyon",
		Siret:        "98765432109876",
		VATNumber:    "FR98765432109",
		IBAN:         "FR7630006000011234567890189",
		BIC:          "AGRIFRPP",
		BankName:     "Crédit Agricole",
		PrimaryColor: "#2563eb",
	}
}

func TestRender_WritesPDFAndSidecar(t *testing.T) {
	dir := t.TempDir()
	r := pdf.NewRenderer(dir, testCompany())

	pdfPath, pdfHash, err := r.Render(context.Background(), renderableInvoice(), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "INV2025007.pdf"), pdfPath)

	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), pdfHash)

	sidecar, err := os.ReadFile(filepath.Join(dir, "INV2025007-cii.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), "rsm:CrossIndustryInvoice")
}

func TestRender_BrandingOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	r := pdf.NewRenderer(dir, testCompany())

	branding := &domain.Branding{
		CompanyName:  "Atelier Durand",
		PrimaryColor: "#ff0000",
	}
	_, _, err := r.Render(context.Background(), renderableInvoice(), branding)
	require.NoError(t, err)

	sidecar, err := os.ReadFile(filepath.Join(dir, "INV2025007-cii.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), "Atelier Durand")
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	r := pdf.NewRenderer(dir, testCompany())

	pdfPath, _, err := r.Render(context.Background(), renderableInvoice(), nil)
	require.NoError(t, err)

	data, err := r.ReadDocument(context.Background(), pdfPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = r.ReadDocument(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "INV-2025-001", pdf.SafeFileName("INV/2025/001"))
	assert.Equal(t, "AV2025001", pdf.SafeFileName("AV2025001"))
}
