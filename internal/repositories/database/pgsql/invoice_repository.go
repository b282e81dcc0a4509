package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturio/invoice-engine/internal/apperrors"
	"github.com/facturio/invoice-engine/internal/core/domain"
	portsrepo "github.com/facturio/invoice-engine/internal/core/ports/repositories"
	"github.com/facturio/invoice-engine/internal/models"
	"github.com/facturio/invoice-engine/internal/utils/mapping"
)

const invoiceColumns = `
	invoice_id, invoice_number, status,
	customer_name, customer_address, customer_siret, customer_vat_number, customer_email, customer_phone,
	issue_date, delivery_date, due_date,
	payment_terms_days, late_payment_interest_rate, recovery_indemnity, vat_mention, notes,
	total_ht, total_tva, total_ttc,
	original_invoice_id, pdf_path, pdf_hash, validated_at, paid_at,
	created_at, updated_at`

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a new repository for invoice data.
func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryWithTx {
	return &PgxInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxInvoiceRepository implements portsrepo.InvoiceRepositoryWithTx
var _ portsrepo.InvoiceRepositoryWithTx = (*PgxInvoiceRepository)(nil)

// SaveInvoice inserts the invoice and all of its items in one transaction.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	modelInv := mapping.ToModelInvoice(invoice)
	insertQuery := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27);
	`
	_, err = tx.Exec(ctx, insertQuery,
		modelInv.InvoiceID, modelInv.InvoiceNumber, modelInv.Status,
		modelInv.CustomerName, modelInv.CustomerAddress, modelInv.CustomerSiret, modelInv.CustomerVATNumber, modelInv.CustomerEmail, modelInv.CustomerPhone,
		modelInv.IssueDate, modelInv.DeliveryDate, modelInv.DueDate,
		modelInv.PaymentTermsDays, modelInv.LatePaymentInterestRate, modelInv.RecoveryIndemnity, modelInv.VATMention, modelInv.Notes,
		modelInv.TotalHT, modelInv.TotalTVA, modelInv.TotalTTC,
		modelInv.OriginalInvoiceID, modelInv.PDFPath, modelInv.PDFHash, modelInv.ValidatedAt, modelInv.PaidAt,
		modelInv.CreatedAt, modelInv.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: invoice number %s", apperrors.ErrDuplicate, invoice.InvoiceNumber)
		}
		return apperrors.NewAppError(500, "failed to insert invoice "+invoice.InvoiceID, err)
	}

	if err := r.insertItems(ctx, tx, invoice.InvoiceID, invoice.Items); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// UpdateInvoice replaces the invoice row and its whole item collection.
func (r *PgxInvoiceRepository) UpdateInvoice(ctx context.Context, invoice domain.Invoice) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	modelInv := mapping.ToModelInvoice(invoice)
	updateQuery := `
		UPDATE invoices SET
			customer_name = $2, customer_address = $3, customer_siret = $4, customer_vat_number = $5,
			customer_email = $6, customer_phone = $7,
			issue_date = $8, delivery_date = $9, due_date = $10,
			payment_terms_days = $11, late_payment_interest_rate = $12, recovery_indemnity = $13,
			vat_mention = $14, notes = $15,
			total_ht = $16, total_tva = $17, total_ttc = $18,
			updated_at = $19
		WHERE invoice_id = $1;
	`
	tag, err := tx.Exec(ctx, updateQuery,
		modelInv.InvoiceID,
		modelInv.CustomerName, modelInv.CustomerAddress, modelInv.CustomerSiret, modelInv.CustomerVATNumber,
		modelInv.CustomerEmail, modelInv.CustomerPhone,
		modelInv.IssueDate, modelInv.DeliveryDate, modelInv.DueDate,
		modelInv.PaymentTermsDays, modelInv.LatePaymentInterestRate, modelInv.RecoveryIndemnity,
		modelInv.VATMention, modelInv.Notes,
		modelInv.TotalHT, modelInv.TotalTVA, modelInv.TotalTTC,
		modelInv.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update invoice "+invoice.InvoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1;`, invoice.InvoiceID); err != nil {
		return apperrors.NewAppError(500, "failed to replace invoice items for "+invoice.InvoiceID, err)
	}
	if err := r.insertItems(ctx, tx, invoice.InvoiceID, invoice.Items); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// MarkValidated sets VALIDATED together with the document path, hash and
// validation timestamp. Only a DRAFT row is affected.
func (r *PgxInvoiceRepository) MarkValidated(ctx context.Context, invoiceID string, pdfPath, pdfHash string, validatedAt time.Time) error {
	query := `
		UPDATE invoices
		SET status = $2, pdf_path = $3, pdf_hash = $4, validated_at = $5, updated_at = $5
		WHERE invoice_id = $1 AND status = $6;
	`
	tag, err := r.Pool.Exec(ctx, query, invoiceID, string(domain.StatusValidated), pdfPath, pdfHash, validatedAt, string(domain.StatusDraft))
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark invoice validated "+invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkPaid sets PAID and the payment timestamp. Only a VALIDATED row is
// affected.
func (r *PgxInvoiceRepository) MarkPaid(ctx context.Context, invoiceID string, paidAt time.Time) error {
	query := `
		UPDATE invoices
		SET status = $2, paid_at = $3, updated_at = $3
		WHERE invoice_id = $1 AND status = $4;
	`
	tag, err := r.Pool.Exec(ctx, query, invoiceID, string(domain.StatusPaid), paidAt, string(domain.StatusValidated))
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark invoice paid "+invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteInvoice removes the invoice and its items.
func (r *PgxInvoiceRepository) DeleteInvoice(ctx context.Context, invoiceID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1;`, invoiceID); err != nil {
		return apperrors.NewAppError(500, "failed to delete invoice items for "+invoiceID, err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE invoice_id = $1;`, invoiceID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete invoice "+invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}

// FindInvoiceByID retrieves an invoice with its items.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return r.findOne(ctx, `WHERE invoice_id = $1`, invoiceID)
}

// FindInvoiceByNumber retrieves an invoice with its items by number.
func (r *PgxInvoiceRepository) FindInvoiceByNumber(ctx context.Context, invoiceNumber string) (*domain.Invoice, error) {
	return r.findOne(ctx, `WHERE invoice_number = $1`, invoiceNumber)
}

func (r *PgxInvoiceRepository) findOne(ctx context.Context, where string, arg any) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ` + where + `;`
	row := r.Pool.QueryRow(ctx, query, arg)

	modelInv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}

	items, err := r.loadItems(ctx, []string{modelInv.InvoiceID})
	if err != nil {
		return nil, err
	}

	domainInv := mapping.ToDomainInvoice(modelInv, items[modelInv.InvoiceID])
	return &domainInv, nil
}

// ListInvoices retrieves invoices with their items, newest first.
func (r *PgxInvoiceRepository) ListInvoices(ctx context.Context, limit, offset int) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY created_at DESC, invoice_id LIMIT $1 OFFSET $2;`
	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var modelInvoices []models.Invoice
	var ids []string
	for rows.Next() {
		modelInv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		modelInvoices = append(modelInvoices, modelInv)
		ids = append(ids, modelInv.InvoiceID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice rows: %w", err)
	}
	if len(modelInvoices) == 0 {
		return []domain.Invoice{}, nil
	}

	itemsByInvoice, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	invoices := make([]domain.Invoice, len(modelInvoices))
	for i, m := range modelInvoices {
		invoices[i] = mapping.ToDomainInvoice(m, itemsByInvoice[m.InvoiceID])
	}
	return invoices, nil
}

// FindLastNumberByPrefix returns the number greatest by (length, value) for
// the prefix.
func (r *PgxInvoiceRepository) FindLastNumberByPrefix(ctx context.Context, prefix string) (string, error) {
	query := `
		SELECT invoice_number FROM invoices
		WHERE invoice_number LIKE $1 || '%'
		ORDER BY LENGTH(invoice_number) DESC, invoice_number DESC
		LIMIT 1;
	`
	var number string
	err := r.Pool.QueryRow(ctx, query, prefix).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("failed to find last number for prefix %s: %w", prefix, err)
	}
	return number, nil
}

// ListNumbersByPrefix returns every invoice number sharing the prefix.
func (r *PgxInvoiceRepository) ListNumbersByPrefix(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT invoice_number FROM invoices WHERE invoice_number LIKE $1 || '%';`
	rows, err := r.Pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list numbers for prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan invoice number: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice numbers: %w", err)
	}
	return numbers, nil
}

func (r *PgxInvoiceRepository) insertItems(ctx context.Context, tx pgx.Tx, invoiceID string, items []domain.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	itemQuery := `
		INSERT INTO invoice_items (invoice_id, line_number, description, quantity, unit, unit_price_ht, vat_rate, discount, total_ht, total_tva, total_ttc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	for _, item := range items {
		modelItem := mapping.ToModelInvoiceItem(invoiceID, item)
		batch.Queue(itemQuery,
			modelItem.InvoiceID, modelItem.LineNumber, modelItem.Description,
			modelItem.Quantity, modelItem.Unit, modelItem.UnitPriceHT,
			modelItem.VATRate, modelItem.Discount,
			modelItem.TotalHT, modelItem.TotalTVA, modelItem.TotalTTC,
		)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return apperrors.NewAppError(500, "failed to insert invoice items for "+invoiceID, err)
		}
	}
	return nil
}

func (r *PgxInvoiceRepository) loadItems(ctx context.Context, invoiceIDs []string) (map[string][]models.InvoiceItem, error) {
	query := `
		SELECT invoice_id, line_number, description, quantity, unit, unit_price_ht, vat_rate, discount, total_ht, total_tva, total_ttc
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, line_number;
	`
	rows, err := r.Pool.Query(ctx, query, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice items: %w", err)
	}
	defer rows.Close()

	itemsByInvoice := make(map[string][]models.InvoiceItem)
	for rows.Next() {
		var item models.InvoiceItem
		if err := rows.Scan(
			&item.InvoiceID, &item.LineNumber, &item.Description,
			&item.Quantity, &item.Unit, &item.UnitPriceHT,
			&item.VATRate, &item.Discount,
			&item.TotalHT, &item.TotalTVA, &item.TotalTTC,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		itemsByInvoice[item.InvoiceID] = append(itemsByInvoice[item.InvoiceID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice items: %w", err)
	}
	return itemsByInvoice, nil
}

func scanInvoice(row pgx.Row) (models.Invoice, error) {
	var m models.Invoice
	err := row.Scan(
		&m.InvoiceID, &m.InvoiceNumber, &m.Status,
		&m.CustomerName, &m.CustomerAddress, &m.CustomerSiret, &m.CustomerVATNumber, &m.CustomerEmail, &m.CustomerPhone,
		&m.IssueDate, &m.DeliveryDate, &m.DueDate,
		&m.PaymentTermsDays, &m.LatePaymentInterestRate, &m.RecoveryIndemnity, &m.VATMention, &m.Notes,
		&m.TotalHT, &m.TotalTVA, &m.TotalTTC,
		&m.OriginalInvoiceID, &m.PDFPath, &m.PDFHash, &m.ValidatedAt, &m.PaidAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
