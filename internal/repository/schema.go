package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arhammirker1/invoiceai/internal/common"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL,
	filename       TEXT NOT NULL,
	original_path  TEXT NOT NULL,
	content_type   TEXT NOT NULL,
	content_hash   CHAR(64) NOT NULL,
	status         TEXT NOT NULL DEFAULT 'PENDING',
	error_message  VARCHAR(500),
	excel_path     TEXT,
	invoice_number TEXT,
	vendor_name    TEXT,
	invoice_date   DATE,
	total_amount   NUMERIC(10,2),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (status);

CREATE UNIQUE INDEX IF NOT EXISTS documents_content_hash_idx ON documents (content_hash);

CREATE TABLE IF NOT EXISTS line_items (
	id          BIGSERIAL PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	position    INT NOT NULL,
	description TEXT NOT NULL,
	quantity    NUMERIC(10,2),
	unit_price  NUMERIC(10,2),
	tax_amount  NUMERIC(10,2),
	total_amount NUMERIC(10,2) NOT NULL DEFAULT 0.00
);

CREATE INDEX IF NOT EXISTS line_items_document_idx ON line_items (document_id);
`

// EnsureSchema creates the tables the pipeline writes to when they do not
// exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return common.WrapError(err, "ensure schema")
	}
	return nil
}
