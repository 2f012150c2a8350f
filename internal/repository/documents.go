package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arhammirker1/invoiceai/constants"
	"github.com/arhammirker1/invoiceai/internal/common"
	"github.com/arhammirker1/invoiceai/internal/entity"
)

// ErrorMessageLimit bounds persisted failure messages.
const ErrorMessageLimit = 500

// DocumentStore is the persistence surface the pipeline writes through.
// Each method is one atomic write point.
type DocumentStore interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	ListPending(ctx context.Context, limit int) ([]uuid.UUID, error)

	// ClaimProcessing transitions PENDING -> PROCESSING. It reports false
	// when the document was not in PENDING, which is how a concurrent
	// duplicate invocation loses the race without touching the row.
	ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error)

	// CompleteExtraction atomically writes the extracted header fields,
	// replaces the document's entire line-item set, records the artifact
	// path and transitions PROCESSING -> COMPLETED.
	CompleteExtraction(ctx context.Context, id uuid.UUID, rec entity.ExtractedRecord, excelPath string) error

	// MarkFailed transitions PROCESSING -> FAILED, persisting the message
	// truncated to ErrorMessageLimit. Previously committed fields are left
	// as they are.
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error
}

// DocumentRepository wraps all SQL used by the pipeline, the poller and the
// intake path. It satisfies DocumentStore.
type DocumentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDocumentRepository(pool *pgxpool.Pool, logger *slog.Logger) *DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentRepository{pool: pool, logger: logger}
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	var (
		doc      entity.Document
		status   string
		totalStr *string
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, filename, original_path, content_type, status,
		       error_message, excel_path, invoice_number, vendor_name,
		       invoice_date, total_amount::text, created_at, updated_at
		FROM documents WHERE id = $1
	`, id)
	err := row.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.OriginalPath, &doc.ContentType,
		&status, &doc.ErrorMessage, &doc.ExcelPath, &doc.InvoiceNumber, &doc.VendorName,
		&doc.InvoiceDate, &totalStr, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("document %s", id), common.ErrNotFound)
		}
		return nil, common.WrapError(err, "select document")
	}
	doc.Status = constants.ProcessingStatus(status)
	if totalStr != nil {
		if d, err := decimal.NewFromString(*totalStr); err == nil {
			doc.TotalAmount = &d
		}
	}
	return &doc, nil
}

func (r *DocumentRepository) ListPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM documents
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`, string(constants.StatusPending), limit)
	if err != nil {
		return nil, common.WrapError(err, "list pending documents")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, common.WrapError(err, "scan pending document id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *DocumentRepository) ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	// Conditional update is the per-document lock: only one invocation can
	// move the row out of PENDING.
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, string(constants.StatusProcessing), time.Now().UTC(), id, string(constants.StatusPending))
	if err != nil {
		return false, common.WrapError(err, "claim document")
	}
	claimed := tag.RowsAffected() == 1
	if !claimed {
		r.logger.Warn("document.claim.lost", "document_id", id)
	}
	return claimed, nil
}

func (r *DocumentRepository) CompleteExtraction(ctx context.Context, id uuid.UUID, rec entity.ExtractedRecord, excelPath string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return common.WrapError(err, "begin complete tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var totalStr *string
	if rec.TotalAmount != nil {
		s := rec.TotalAmount.StringFixed(2)
		totalStr = &s
	}
	tag, err := tx.Exec(ctx, `
		UPDATE documents
		SET invoice_number = $1,
		    vendor_name    = $2,
		    invoice_date   = $3,
		    total_amount   = $4,
		    excel_path     = $5,
		    status         = $6,
		    error_message  = NULL,
		    updated_at     = $7
		WHERE id = $8 AND status = $9
	`, rec.InvoiceNumber, rec.VendorName, rec.InvoiceDate, totalStr, excelPath,
		string(constants.StatusCompleted), time.Now().UTC(), id, string(constants.StatusProcessing))
	if err != nil {
		return common.WrapError(err, "complete document")
	}
	if tag.RowsAffected() != 1 {
		return common.NewAppError("ILLEGAL_TRANSITION",
			fmt.Sprintf("document %s is not PROCESSING", id), common.ErrInvalidInput)
	}

	// Replace the whole line-item set in the same transaction.
	if _, err := tx.Exec(ctx, `DELETE FROM line_items WHERE document_id = $1`, id); err != nil {
		return common.WrapError(err, "clear line items")
	}
	for i, item := range rec.LineItems {
		var qty, price, tax *string
		if item.Quantity != nil {
			s := item.Quantity.StringFixed(2)
			qty = &s
		}
		if item.UnitPrice != nil {
			s := item.UnitPrice.StringFixed(2)
			price = &s
		}
		if item.TaxAmount != nil {
			s := item.TaxAmount.StringFixed(2)
			tax = &s
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO line_items (document_id, position, description, quantity, unit_price, tax_amount, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, i, item.Description, qty, price, tax, item.Total.StringFixed(2))
		if err != nil {
			return common.WrapError(err, "insert line item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return common.WrapError(err, "commit complete tx")
	}
	r.logger.Info("document.completed", "document_id", id, "line_items", len(rec.LineItems))
	return nil
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`, string(constants.StatusFailed), common.Truncate(msg, ErrorMessageLimit),
		time.Now().UTC(), id, string(constants.StatusProcessing))
	if err != nil {
		return common.WrapError(err, "mark document failed")
	}
	if tag.RowsAffected() != 1 {
		return common.NewAppError("ILLEGAL_TRANSITION",
			fmt.Sprintf("document %s is not PROCESSING", id), common.ErrInvalidInput)
	}
	r.logger.Warn("document.failed", "document_id", id, "error", common.Truncate(msg, 200))
	return nil
}

// RegisterFile records a discovered file as a PENDING document, deduplicated
// by content hash: re-registering bytes already known returns the existing
// document with created=false.
func (r *DocumentRepository) RegisterFile(ctx context.Context, userID uuid.UUID, filename, originalPath, contentType, hashHex string) (uuid.UUID, bool, error) {
	id := uuid.New()
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, user_id, filename, original_path, content_type, content_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (content_hash) DO NOTHING
	`, id, userID, filename, originalPath, contentType, hashHex, string(constants.StatusPending), now)
	if err != nil {
		return uuid.Nil, false, common.WrapError(err, "register file")
	}
	if tag.RowsAffected() == 1 {
		r.logger.Info("document.registered", "document_id", id, "path", originalPath)
		return id, true, nil
	}

	var existing uuid.UUID
	err = r.pool.QueryRow(ctx, `SELECT id FROM documents WHERE content_hash = $1`, hashHex).Scan(&existing)
	if err != nil {
		return uuid.Nil, false, common.WrapError(err, "lookup deduplicated document")
	}
	return existing, false, nil
}

// ListLineItems returns a document's line items in insertion order.
func ListLineItems(ctx context.Context, pool *pgxpool.Pool, documentID uuid.UUID) ([]entity.LineItem, error) {
	rows, err := pool.Query(ctx, `
		SELECT description, quantity::text, unit_price::text, tax_amount::text, total_amount::text
		FROM line_items WHERE document_id = $1 ORDER BY position
	`, documentID)
	if err != nil {
		return nil, common.WrapError(err, "list line items")
	}
	defer rows.Close()

	var items []entity.LineItem
	for rows.Next() {
		var (
			item             entity.LineItem
			qty, price, tax  *string
			totalStr         string
		)
		if err := rows.Scan(&item.Description, &qty, &price, &tax, &totalStr); err != nil {
			return nil, common.WrapError(err, "scan line item")
		}
		item.Quantity = parseOptionalDecimal(qty)
		item.UnitPrice = parseOptionalDecimal(price)
		item.TaxAmount = parseOptionalDecimal(tax)
		if d, err := decimal.NewFromString(totalStr); err == nil {
			item.Total = d
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func parseOptionalDecimal(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}
