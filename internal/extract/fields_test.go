package extract

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleInvoice = `INVOICE
Acme Supplies Co.
123 Warehouse Road

Invoice #: INV-2024-0042
Date: 2024-01-15

Subtotal: $45.00
Total: $120.50
Amount Due: $1,200.00
`

func TestFieldsInvoiceNumber(t *testing.T) {
	rec := Fields(sampleInvoice, Options{})
	if rec.InvoiceNumber == nil || *rec.InvoiceNumber != "INV-2024-0042" {
		t.Fatalf("invoice number = %v, want INV-2024-0042", rec.InvoiceNumber)
	}
}

func TestFieldsInvoiceNumberWithoutHash(t *testing.T) {
	cases := map[string]string{
		"Invoice: INV-7":        "INV-7",
		"Invoice Number: 88421": "88421",
		"invoice no: A-100":     "A-100",
	}
	for text, want := range cases {
		rec := Fields(text, Options{})
		if rec.InvoiceNumber == nil || *rec.InvoiceNumber != want {
			t.Errorf("Fields(%q): invoice number = %v, want %s", text, rec.InvoiceNumber, want)
		}
	}
}

func TestFieldsInvoiceNumberNotStolenFromLabels(t *testing.T) {
	// "Invoice Date:" must not yield "Date", and a bare heading must not
	// capture the vendor line beneath it.
	for _, text := range []string{
		"Invoice Date: 2024-01-15\n",
		"INVOICE\nAcme Supplies Co.\n",
	} {
		if rec := Fields(text, Options{}); rec.InvoiceNumber != nil {
			t.Errorf("Fields(%q): invoice number = %q, want absent", text, *rec.InvoiceNumber)
		}
	}
}

func TestFieldsVendorSkipsLabels(t *testing.T) {
	rec := Fields("INVOICE\nAcme Supplies Co.\nDate: 2024-01-01\n", Options{})
	if rec.VendorName == nil || *rec.VendorName != "Acme Supplies Co." {
		t.Fatalf("vendor = %v, want Acme Supplies Co.", rec.VendorName)
	}
}

func TestFieldsVendorRejectsNumericHeavyLines(t *testing.T) {
	rec := Fields("INVOICE\n1234567890 12\nAcme Supplies Co.\n", Options{})
	if rec.VendorName == nil || *rec.VendorName != "Acme Supplies Co." {
		t.Fatalf("vendor = %v, want Acme Supplies Co.", rec.VendorName)
	}
}

func TestFieldsVendorAbsentWhenNothingQualifies(t *testing.T) {
	rec := Fields("INVOICE\nTotal: $5.00\n", Options{})
	if rec.VendorName != nil {
		t.Fatalf("vendor = %q, want absent", *rec.VendorName)
	}
}

func TestFieldsDateFormats(t *testing.T) {
	cases := map[string]string{
		"Date: 01/15/2024": "2024-01-15",
		"Date: 2024-01-15": "2024-01-15",
		"Date: 01-15-2024": "2024-01-15",
		"Date: 1/5/2024":   "2024-01-05", // single-digit components
		"Date: 1-5-2024":   "2024-01-05",
	}
	for text, want := range cases {
		rec := Fields(text, Options{})
		if rec.InvoiceDate == nil {
			t.Errorf("Fields(%q): date absent", text)
			continue
		}
		if got := rec.InvoiceDate.Format("2006-01-02"); got != want {
			t.Errorf("Fields(%q): date = %s, want %s", text, got, want)
		}
	}
}

func TestFieldsDateAbsentOnGarbage(t *testing.T) {
	rec := Fields("no dates here at all", Options{})
	if rec.InvoiceDate != nil {
		t.Fatalf("date = %v, want absent", rec.InvoiceDate)
	}
}

func TestFieldsTotalMaximumWins(t *testing.T) {
	rec := Fields(sampleInvoice, Options{})
	want := decimal.RequireFromString("1200.00")
	if rec.TotalAmount == nil || !rec.TotalAmount.Equal(want) {
		t.Fatalf("total = %v, want 1200.00", rec.TotalAmount)
	}
}

func TestFieldsTotalWithoutThousandsSeparator(t *testing.T) {
	// 1200.00 must be captured whole, not truncated at the first three
	// digits as if a separator were mandatory.
	cases := map[string]string{
		"Total: $1200.00":     "1200.00",
		"Total: 1200.00":      "1200.00",
		"Amount Due: $431292": "431292",
	}
	for text, want := range cases {
		rec := Fields(text, Options{})
		if rec.TotalAmount == nil || !rec.TotalAmount.Equal(decimal.RequireFromString(want)) {
			t.Errorf("Fields(%q): total = %v, want %s", text, rec.TotalAmount, want)
		}
	}
}

func TestFieldsBareAmountsOnlyWhenAdmitted(t *testing.T) {
	text := "Acme Supplies Co.\nwidget $9,999.99\nTotal: $10.00\n"

	withTables := Fields(text, Options{})
	if withTables.TotalAmount == nil || !withTables.TotalAmount.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("structured path total = %v, want 10.00", withTables.TotalAmount)
	}

	ocrPath := Fields(text, Options{IncludeBareAmounts: true})
	if ocrPath.TotalAmount == nil || !ocrPath.TotalAmount.Equal(decimal.RequireFromString("9999.99")) {
		t.Fatalf("fallback path total = %v, want 9999.99", ocrPath.TotalAmount)
	}
}

func TestFieldsIdempotent(t *testing.T) {
	first := Fields(sampleInvoice, Options{})
	second := Fields(sampleInvoice, Options{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extractor is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestFieldsEmptyTextYieldsEmptyRecord(t *testing.T) {
	rec := Fields("", Options{})
	if rec.InvoiceNumber != nil || rec.VendorName != nil || rec.InvoiceDate != nil || rec.TotalAmount != nil {
		t.Fatalf("expected all fields absent, got %+v", rec)
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"$1,200.00": "1200.00",
		"45.00":     "45.00",
		"1,234,567": "1234567",
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseAmount("n/a"); err == nil {
		t.Error("ParseAmount(n/a) should fail")
	}
}
