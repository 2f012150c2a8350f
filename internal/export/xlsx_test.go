package export

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/arhammirker1/invoiceai/internal/entity"
)

func sampleRecord() entity.ExtractedRecord {
	num := "INV-2024-0042"
	vendor := "Acme Supplies Co."
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("1200.00")
	qty := decimal.RequireFromString("2")
	price := decimal.RequireFromString("10.00")

	return entity.ExtractedRecord{
		InvoiceNumber: &num,
		VendorName:    &vendor,
		InvoiceDate:   &date,
		TotalAmount:   &total,
		LineItems: []entity.LineItem{
			{Description: "Widget assembly", Quantity: &qty, UnitPrice: &price, Total: decimal.RequireFromString("20.00")},
			{Description: "Shipping", Total: decimal.RequireFromString("5.00")},
		},
	}
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "invoice.png")
	writeTestPNG(t, source)
	out := filepath.Join(dir, "invoice_1.xlsx")

	gen := NewGenerator(nil, nil)
	if err := gen.Generate(context.Background(), sampleRecord(), source, out); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("reopen artifact: %v", err)
	}
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue(dataSheet, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		return v
	}

	if get("A1") != "Invoice Information" {
		t.Fatalf("A1 = %q", get("A1"))
	}
	// header block: one label/value pair per row
	wantPairs := map[string]string{
		"A3": "Invoice Number:", "B3": "INV-2024-0042",
		"A4": "Vendor:", "B4": "Acme Supplies Co.",
		"A5": "Date:", "B5": "2024-01-15",
		"A6": "Total Amount:", "B6": "$1200.00",
	}
	for cell, want := range wantPairs {
		if got := get(cell); got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}

	// line item table: header row then one row per item, same order
	if get("A9") != "Description" || get("D9") != "Total" {
		t.Fatalf("item header row off: A9=%q D9=%q", get("A9"), get("D9"))
	}
	if get("A10") != "Widget assembly" || get("B10") != "2" || get("C10") != "$10.00" || get("D10") != "$20.00" {
		t.Fatalf("first item row off: %q %q %q %q", get("A10"), get("B10"), get("C10"), get("D10"))
	}
	if get("A11") != "Shipping" || get("B11") != "" || get("C11") != "" || get("D11") != "$5.00" {
		t.Fatalf("second item row off: %q %q %q %q", get("A11"), get("B11"), get("C11"), get("D11"))
	}
	if get("A12") != "" {
		t.Fatalf("unexpected extra item row: %q", get("A12"))
	}

	// preview sheet exists and embedded the image (no explanatory cell)
	if idx, err := f.GetSheetIndex(previewSheet); err != nil || idx == -1 {
		t.Fatalf("preview sheet missing (idx=%d err=%v)", idx, err)
	}
	if v, _ := f.GetCellValue(previewSheet, "A1"); v != "" {
		t.Fatalf("expected embedded preview, got explanation %q", v)
	}
}

func TestGenerateColumnWidthCap(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "wide.xlsx")

	rec := sampleRecord()
	rec.LineItems = []entity.LineItem{{
		Description: strings.Repeat("very long description ", 10),
		Total:       decimal.RequireFromString("1.00"),
	}}

	gen := NewGenerator(nil, nil)
	if err := gen.Generate(context.Background(), rec, filepath.Join(dir, "missing.png"), out); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w, err := f.GetColWidth(dataSheet, "A")
	if err != nil {
		t.Fatal(err)
	}
	if w > maxColumnWidth+0.5 {
		t.Fatalf("column A width %.1f exceeds cap %d", w, maxColumnWidth)
	}
}

func TestGeneratePreviewSoftFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nopreview.xlsx")

	gen := NewGenerator(nil, nil)
	// Source image does not exist: the document must still succeed with an
	// explanatory cell on the preview sheet.
	if err := gen.Generate(context.Background(), sampleRecord(), filepath.Join(dir, "gone.png"), out); err != nil {
		t.Fatalf("Generate must not fail on preview problems: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	v, err := f.GetCellValue(previewSheet, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(v, "Could not embed original invoice:") {
		t.Fatalf("explanatory cell = %q", v)
	}
}

func TestGenerateEmptyRecord(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "empty.xlsx")

	gen := NewGenerator(nil, nil)
	if err := gen.Generate(context.Background(), entity.ExtractedRecord{}, filepath.Join(dir, "gone.pdf"), out); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(dataSheet, "A3"); v != "" {
		t.Fatalf("empty record should have no header pairs, got %q", v)
	}
}
