// Package pdf renders invoices as styled A4 documents and stores them under
// a configured base path, one file per invoice. Alongside each PDF a CII XML
// sidecar is written so the structured payload travels with the artifact.
package pdf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/facturio/invoice-engine/internal/cii"
	"github.com/facturio/invoice-engine/internal/core/domain"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
	"github.com/facturio/invoice-engine/internal/middleware"
	"github.com/facturio/invoice-engine/internal/utils/amounts"
)

const (
	pageMargin   = 40.0
	sidecarExt   = "-cii.xml"
	defaultColor = "#1e3a5f"
)

// Renderer produces the visual invoice document.
type Renderer struct {
	storageDir string
	defaults   domain.CompanyInfo
}

// NewRenderer creates a Renderer writing to storageDir with the given default
// company identity.
func NewRenderer(storageDir string, defaults domain.CompanyInfo) *Renderer {
	return &Renderer{storageDir: storageDir, defaults: defaults}
}

var _ portssvc.DocumentRendererSvc = (*Renderer)(nil)

// Render writes the PDF and its XML sidecar, returning the PDF path and the
// SHA-256 hex digest of its content. Nothing is left behind on failure: the
// document is built in memory and both files are written atomically via a
// temp-file rename.
func (r *Renderer) Render(ctx context.Context, invoice domain.Invoice, branding *domain.Branding) (string, string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	company := domain.MergeBranding(r.defaults, branding)

	xmlData, err := cii.Encode(invoice, company)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode structured document: %w", err)
	}

	var buf bytes.Buffer
	if err := buildPDF(&buf, invoice, company); err != nil {
		return "", "", fmt.Errorf("failed to build document: %w", err)
	}

	if err := os.MkdirAll(r.storageDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	baseName := SafeFileName(invoice.InvoiceNumber)
	pdfPath := filepath.Join(r.storageDir, baseName+".pdf")
	xmlPath := filepath.Join(r.storageDir, baseName+sidecarExt)

	if err := writeAtomic(xmlPath, xmlData); err != nil {
		return "", "", fmt.Errorf("failed to write structured document: %w", err)
	}
	if err := writeAtomic(pdfPath, buf.Bytes()); err != nil {
		return "", "", fmt.Errorf("failed to write rendered document: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	hash := hex.EncodeToString(sum[:])

	logger.Info("Rendered invoice document",
		slog.String("invoice_number", invoice.InvoiceNumber),
		slog.String("pdf_path", pdfPath),
		slog.String("pdf_hash", hash))
	return pdfPath, hash, nil
}

// ReadDocument loads a previously rendered artifact from disk.
func (r *Renderer) ReadDocument(_ context.Context, pdfPath string) ([]byte, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered document: %w", err)
	}
	return data, nil
}

// SafeFileName derives a storage filename from an invoice number, replacing
// path-unsafe characters.
func SafeFileName(invoiceNumber string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "-", " ", "_")
	return replacer.Replace(invoiceNumber)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".render-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func buildPDF(out *bytes.Buffer, invoice domain.Invoice, company domain.CompanyInfo) error {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Facture %s", invoice.InvoiceNumber), true)
	pdf.SetAuthor(company.Name, true)
	pdf.SetSubject(fmt.Sprintf("Facture pour %s", invoice.CustomerName), true)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, pageHeight := pdf.GetPageSize()

	primaryR, primaryG, primaryB := hexToRGB(firstNonEmpty(company.PrimaryColor, defaultColor))
	grayR, grayG, grayB := hexToRGB(firstNonEmpty(company.SecondaryColor, "#666666"))
	lightR, lightG, lightB := lighten(primaryR, primaryG, primaryB, 0.92)

	primary := func() { pdf.SetTextColor(primaryR, primaryG, primaryB) }
	gray := func() { pdf.SetTextColor(grayR, grayG, grayB) }
	black := func() { pdf.SetTextColor(0, 0, 0) }
	euro := func(d decimal.Decimal) string { return d.StringFixed(2) + " €" }

	y := 40.0
	rightColX := pageWidth/2 + 20
	rightColWidth := pageWidth/2 - pageMargin - 20

	// Header: logo or company name on the left
	if company.ShowLogo && company.LogoBase64 != "" {
		if err := placeLogo(pdf, company, pageMargin, y); err != nil {
			pdf.SetFont("Helvetica", "B", 14)
			primary()
			pdf.Text(pageMargin, y+12, tr(company.Name))
		}
	} else {
		pdf.SetFont("Helvetica", "B", 14)
		primary()
		pdf.Text(pageMargin, y+12, tr(company.Name))
	}
	if company.HeaderText != "" {
		pdf.SetFont("Helvetica", "", 8)
		gray()
		pdf.SetXY(pageMargin, y+55)
		pdf.MultiCell(pageWidth/2-pageMargin-20, 10, tr(company.HeaderText), "", "L", false)
	}

	// Issuer block, top right
	pdf.SetFont("Helvetica", "B", 8)
	gray()
	pdf.Text(rightColX, y+8, tr("Émetteur"))
	y += 12
	pdf.SetFont("Helvetica", "B", 9)
	primary()
	pdf.Text(rightColX, y+9, tr(company.Name))
	y += 11
	pdf.SetFont("Helvetica", "", 8)
	black()
	pdf.SetXY(rightColX, y)
	pdf.MultiCell(rightColWidth, 10, tr(company.Address), "", "L", false)
	y += 20
	if company.Email != "" {
		pdf.Text(rightColX, y+8, tr(company.Email))
		y += 10
	}

	// Client block, below issuer
	y += 5
	pdf.SetFont("Helvetica", "B", 8)
	gray()
	pdf.Text(rightColX, y+8, "Client")
	y += 12
	pdf.SetFont("Helvetica", "B", 9)
	primary()
	pdf.Text(rightColX, y+9, tr(invoice.CustomerName))
	y += 11
	pdf.SetFont("Helvetica", "", 8)
	black()
	pdf.SetXY(rightColX, y)
	pdf.MultiCell(rightColWidth, 10, tr(invoice.CustomerAddress), "", "L", false)
	y += 20
	if invoice.CustomerEmail != "" {
		pdf.Text(rightColX, y+8, tr(invoice.CustomerEmail))
	}

	// Invoice metadata, left column
	leftY := 100.0
	title := "Facture"
	if invoice.Status == domain.StatusCreditNote {
		title = "Avoir"
	}
	pdf.SetFont("Helvetica", "B", 14)
	primary()
	pdf.Text(pageMargin, leftY+12, title)
	leftY += 20

	const labelWidth = 100.0
	meta := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 8)
		primary()
		pdf.Text(pageMargin, leftY+8, tr(label))
		pdf.SetFont("Helvetica", "", 8)
		black()
		pdf.Text(pageMargin+labelWidth, leftY+8, tr(value))
		leftY += 12
	}
	meta("Numéro", invoice.InvoiceNumber)
	meta("Date d'émission", invoice.IssueDate.Format("02/01/2006"))
	meta("Date d'échéance", invoice.DueDate.Format("02/01/2006"))

	// Items table
	if leftY > y {
		y = leftY
	}
	y += 30
	tableWidth := pageWidth - 2*pageMargin
	colDescX, colDescW := pageMargin, tableWidth*0.35
	colQtyX, colQtyW := pageMargin+tableWidth*0.35, tableWidth*0.12
	colUnitX, colUnitW := pageMargin+tableWidth*0.47, tableWidth*0.15
	colVATX, colVATW := pageMargin+tableWidth*0.62, tableWidth*0.12
	colHTX, colHTW := pageMargin+tableWidth*0.74, tableWidth*0.13
	colTTCX, colTTCW := pageMargin+tableWidth*0.87, tableWidth*0.13

	pdf.SetFillColor(lightR, lightG, lightB)
	pdf.Rect(pageMargin, y, tableWidth, 16, "F")
	pdf.SetFont("Helvetica", "B", 7)
	primary()
	headerCell := func(x, w float64, label, align string) {
		pdf.SetXY(x, y+4)
		pdf.CellFormat(w, 8, tr(label), "", 0, align, false, 0, "")
	}
	headerCell(colDescX+4, colDescW-4, "Produits", "L")
	headerCell(colQtyX, colQtyW, "Qté", "C")
	headerCell(colUnitX, colUnitW, "Prix u. HT", "R")
	headerCell(colVATX, colVATW, "TVA (%)", "C")
	headerCell(colHTX, colHTW, "Total HT", "R")
	headerCell(colTTCX, colTTCW, "Total TTC", "R")
	y += 18

	pdf.SetFont("Helvetica", "", 8)
	black()
	for _, item := range invoice.Items {
		cell := func(x, w float64, text, align string) {
			pdf.SetXY(x, y)
			pdf.CellFormat(w, 10, tr(text), "", 0, align, false, 0, "")
		}
		unit := item.Unit
		if unit == "" {
			unit = "unité"
		}
		cell(colDescX+4, colDescW-8, item.Description, "L")
		cell(colQtyX, colQtyW, fmt.Sprintf("%s %s", item.Quantity.String(), unit), "C")
		cell(colUnitX, colUnitW, euro(item.UnitPriceHT), "R")
		cell(colVATX, colVATW, item.VATRate.StringFixed(0)+"%", "C")
		cell(colHTX, colHTW, euro(item.TotalHT), "R")
		cell(colTTCX, colTTCW, euro(item.TotalTTC), "R")
		y += 14
	}
	y += 10

	// VAT detail box (left) and totals recap (right)
	boxY := y
	tvaBoxWidth := (tableWidth - 20) / 2
	recapBoxX := pageMargin + tvaBoxWidth + 20

	pdf.SetFont("Helvetica", "B", 9)
	primary()
	pdf.Text(pageMargin, boxY+9, tr("Détails TVA"))
	tvaY := boxY + 14
	pdf.SetFont("Helvetica", "B", 7)
	gray()
	pdf.Text(pageMargin, tvaY+7, "Taux")
	pdf.Text(pageMargin+60, tvaY+7, "Montant TVA")
	pdf.Text(pageMargin+140, tvaY+7, "Base HT")
	tvaY += 10

	pdf.SetFont("Helvetica", "", 8)
	black()
	for _, bucket := range amounts.GroupByVATRate(invoice.Items) {
		pdf.Text(pageMargin, tvaY+8, bucket.Rate.String()+"%")
		pdf.Text(pageMargin+60, tvaY+8, tr(euro(bucket.Tax)))
		pdf.Text(pageMargin+140, tvaY+8, tr(euro(bucket.Basis)))
		tvaY += 11
	}

	pdf.SetFont("Helvetica", "B", 9)
	primary()
	pdf.Text(recapBoxX, boxY+9, tr("Récapitulatif"))
	recapY := boxY + 14
	recapLine := func(label string, amount decimal.Decimal, size float64) {
		pdf.SetFont("Helvetica", "B", size)
		primary()
		pdf.Text(recapBoxX, recapY+8, tr(label))
		pdf.SetFont("Helvetica", "", size)
		black()
		pdf.SetXY(recapBoxX+100, recapY)
		pdf.CellFormat(80, 10, tr(euro(amount)), "", 0, "R", false, 0, "")
	}
	recapLine("Total HT", invoice.TotalHT, 8)
	recapY += 12
	recapLine("Total TVA", invoice.TotalTVA, 8)
	recapY += 14

	pdf.SetFillColor(lightR, lightG, lightB)
	pdf.Rect(recapBoxX-5, recapY-3, 190, 18, "F")
	pdf.SetFont("Helvetica", "B", 10)
	primary()
	pdf.Text(recapBoxX, recapY+9, "Total TTC")
	pdf.SetXY(recapBoxX+100, recapY)
	pdf.CellFormat(80, 12, tr(euro(invoice.TotalTTC)), "", 0, "R", false, 0, "")

	if tvaY > recapY {
		y = tvaY + 25
	} else {
		y = recapY + 25
	}

	// Payment box, only when bank coordinates are configured
	if company.IBAN != "" {
		pdf.SetDrawColor(221, 221, 221)
		pdf.Rect(pageMargin, y, tvaBoxWidth, 90, "D")

		pdf.SetFont("Helvetica", "B", 9)
		primary()
		pdf.Text(pageMargin+10, y+17, "Paiement")

		payY := y + 22
		payLine := func(label, value string) {
			pdf.SetFont("Helvetica", "B", 7)
			gray()
			pdf.Text(pageMargin+10, payY+7, tr(label))
			pdf.SetFont("Helvetica", "", 7)
			black()
			pdf.Text(pageMargin+90, payY+7, tr(value))
			payY += 11
		}
		payLine("Moyen de paiement", "Virement")
		if company.BankName != "" {
			payLine("Établissement", company.BankName)
		}
		payLine("IBAN", company.IBAN)
		payLine("BIC", company.BIC)

		y += 95
	}

	// Legal mentions
	y += 10
	pdf.SetFont("Helvetica", "", 6)
	gray()
	if company.LegalMentions != "" {
		pdf.SetXY(pageMargin, y)
		pdf.MultiCell(tableWidth, 8, tr(company.LegalMentions), "", "L", false)
	} else {
		pdf.Text(pageMargin, y+6, tr("Pénalités de retard : trois fois le taux d'intérêt légal en vigueur."))
		y += 8
		pdf.Text(pageMargin, y+6, tr("Indemnité forfaitaire pour frais de recouvrement en cas de retard de paiement : 40 €"))
	}

	// Footer
	footerY := pageHeight - 35
	pdf.SetFont("Helvetica", "", 6)
	gray()
	footer := company.FooterText
	if footer == "" {
		parts := []string{company.Name}
		if company.Siret != "" {
			parts = append(parts, "SIRET "+company.Siret)
		}
		if company.VATNumber != "" {
			parts = append(parts, "TVA "+company.VATNumber)
		}
		footer = strings.Join(parts, " | ")
	}
	pdf.Text(pageMargin, footerY+5, tr(footer))
	pdf.SetXY(pageWidth-pageMargin-20, footerY)
	pdf.CellFormat(20, 8, "1 / 1", "", 0, "R", false, 0, "")

	return pdf.Output(out)
}

func placeLogo(pdf *gofpdf.Fpdf, company domain.CompanyInfo, x, y float64) error {
	raw, err := base64.StdEncoding.DecodeString(company.LogoBase64)
	if err != nil {
		return fmt.Errorf("failed to decode logo: %w", err)
	}
	imageType := "png"
	if strings.Contains(company.LogoMimeType, "jpeg") || strings.Contains(company.LogoMimeType, "jpg") {
		imageType = "jpg"
	}
	name := "company-logo"
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(raw))
	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		return err
	}
	pdf.ImageOptions(name, x, y, 120, 50, false, gofpdf.ImageOptions{ImageType: imageType}, 0, "")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func hexToRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	r, _ := strconv.ParseInt(hex[0:2], 16, 0)
	g, _ := strconv.ParseInt(hex[2:4], 16, 0)
	b, _ := strconv.ParseInt(hex[4:6], 16, 0)
	return int(r), int(g), int(b)
}

func lighten(r, g, b int, factor float64) (int, int, int) {
	light := func(c int) int { return c + int(float64(255-c)*factor+0.5) }
	return light(r), light(g), light(b)
}
