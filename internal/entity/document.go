package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arhammirker1/invoiceai/constants"
)

// Document represents one uploaded invoice file for data transfer between
// layers. It is created PENDING by the upload handler and mutated only by
// the processing pipeline thereafter.
type Document struct {
	ID            uuid.UUID                  `json:"id"`
	UserID        uuid.UUID                  `json:"user_id"`
	Filename      string                     `json:"filename"`
	OriginalPath  string                     `json:"original_path"`
	ContentType   string                     `json:"content_type"`
	Status        constants.ProcessingStatus `json:"status"`
	ErrorMessage  *string                    `json:"error_message,omitempty"`
	ExcelPath     *string                    `json:"excel_path,omitempty"`
	InvoiceNumber *string                    `json:"invoice_number,omitempty"`
	VendorName    *string                    `json:"vendor_name,omitempty"`
	InvoiceDate   *time.Time                 `json:"invoice_date,omitempty"`
	TotalAmount   *decimal.Decimal           `json:"total_amount,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// ExtractedRecord is the pipeline's output for one document. Every header
// field is independently optional: a nil field means "not confidently
// found", never an error.
type ExtractedRecord struct {
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	VendorName    *string          `json:"vendor_name,omitempty"`
	InvoiceDate   *time.Time       `json:"invoice_date,omitempty"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	LineItems     []LineItem       `json:"line_items"`
}

// LineItem is one billed good or service. Total defaults to 0.00 when the
// amount cell could not be parsed but the description was confidently found.
type LineItem struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	TaxAmount   *decimal.Decimal `json:"tax_amount,omitempty"`
	Total       decimal.Decimal  `json:"total_amount"`
}
