// Package export renders an extracted invoice record into an xlsx artifact:
// a data sheet with a header block and the line-item table, plus a second
// sheet carrying a preview of the source document when one can be rendered.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/arhammirker1/invoiceai/constants"
	"github.com/arhammirker1/invoiceai/internal/entity"
	"github.com/arhammirker1/invoiceai/internal/ocr"
)

const (
	dataSheet    = "Invoice Data"
	previewSheet = "Original Invoice"

	maxColumnWidth = 50
)

var itemHeaders = []string{"Description", "Quantity", "Unit Price", "Total"}

// Generator writes xlsx artifacts. The rasterizer renders PDF first pages
// for the preview sheet; it may be nil, in which case PDF previews degrade
// to the explanatory cell.
type Generator struct {
	rasterizer *ocr.Rasterizer
	logger     *slog.Logger
}

func NewGenerator(rasterizer *ocr.Rasterizer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{rasterizer: rasterizer, logger: logger}
}

// Generate writes the artifact for rec to outPath. sourcePath points at the
// original document and feeds the preview sheet; preview failures degrade to
// a text cell and never fail the artifact.
func (g *Generator) Generate(ctx context.Context, rec entity.ExtractedRecord, sourcePath, outPath string) error {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	widths := make([]int, len(itemHeaders))
	write := func(col, row int, v string) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(dataSheet, cell, v)
		if col-1 < len(widths) && len(v) > widths[col-1] {
			widths[col-1] = len(v)
		}
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	write(1, 1, "Invoice Information")
	_ = f.SetCellStyle(dataSheet, "A1", "A1", titleStyle)

	row := 3
	if rec.InvoiceNumber != nil {
		write(1, row, "Invoice Number:")
		write(2, row, *rec.InvoiceNumber)
		row++
	}
	if rec.VendorName != nil {
		write(1, row, "Vendor:")
		write(2, row, *rec.VendorName)
		row++
	}
	if rec.InvoiceDate != nil {
		write(1, row, "Date:")
		write(2, row, rec.InvoiceDate.Format("2006-01-02"))
		row++
	}
	if rec.TotalAmount != nil {
		write(1, row, "Total Amount:")
		write(2, row, "$"+rec.TotalAmount.StringFixed(2))
		row++
	}
	row++

	if len(rec.LineItems) > 0 {
		write(1, row, "Line Items")
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellStyle(dataSheet, cell, cell, boldStyle)
		row++

		headerRow := row
		for col, h := range itemHeaders {
			write(col+1, row, h)
		}
		first, _ := excelize.CoordinatesToCellName(1, headerRow)
		last, _ := excelize.CoordinatesToCellName(len(itemHeaders), headerRow)
		_ = f.SetCellStyle(dataSheet, first, last, boldStyle)
		row++

		for _, item := range rec.LineItems {
			write(1, row, item.Description)
			if item.Quantity != nil {
				write(2, row, item.Quantity.String())
			}
			if item.UnitPrice != nil {
				write(3, row, "$"+item.UnitPrice.StringFixed(2))
			}
			write(4, row, "$"+item.Total.StringFixed(2))
			row++
		}
	}

	// Size columns to their widest cell, capped.
	for i, w := range widths {
		if w == 0 {
			continue
		}
		if w+2 < maxColumnWidth {
			w += 2
		} else {
			w = maxColumnWidth
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(dataSheet, col, col, float64(w))
	}

	g.embedPreview(ctx, f, sourcePath)

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	g.logger.Info("export.xlsx.ok",
		"path", outPath,
		"line_items", len(rec.LineItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// embedPreview adds the source document's first page to the preview sheet.
// Any failure becomes an explanatory cell instead; the artifact still
// succeeds.
func (g *Generator) embedPreview(ctx context.Context, f *excelize.File, sourcePath string) {
	if _, err := f.NewSheet(previewSheet); err != nil {
		return
	}

	imgPath, cleanup, err := g.previewImage(ctx, sourcePath)
	if cleanup != nil {
		defer cleanup()
	}
	if err == nil {
		err = f.AddPicture(previewSheet, "A1", imgPath, &excelize.GraphicOptions{AutoFit: true})
	}
	if err != nil {
		g.logger.Warn("export.preview.failed", "source", sourcePath, "error", err)
		_ = f.SetCellValue(previewSheet, "A1", fmt.Sprintf("Could not embed original invoice: %v", err))
	}
}

func (g *Generator) previewImage(ctx context.Context, sourcePath string) (string, func(), error) {
	if constants.MapExtToFormat(filepath.Ext(sourcePath)) == constants.PDF {
		if g.rasterizer == nil {
			return "", nil, fmt.Errorf("no rasterizer configured for PDF preview")
		}
		return g.rasterizer.RenderFirstPage(ctx, sourcePath)
	}
	return sourcePath, nil, nil
}
