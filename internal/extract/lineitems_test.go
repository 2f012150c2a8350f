package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestItemsFromTables(t *testing.T) {
	tables := [][][]string{{
		{"Description", "Qty", "Unit Price", "Total"},
		{"Widget assembly", "2", "$10.00", "$20.00"},
		{"Shipping", "", "", "$5.00"},
		{"", "1", "$1.00", "$1.00"},     // blank description: skipped
		{"Truncated row", "1"},          // does not reach the total column: skipped
		{"Mystery charge", "x", "n/a", "??"}, // unparsable cells: absent, total defaults
	}}

	items := ItemsFromTables(tables)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	first := items[0]
	if first.Description != "Widget assembly" {
		t.Fatalf("description = %q", first.Description)
	}
	if first.Quantity == nil || !first.Quantity.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("quantity = %v, want 2", first.Quantity)
	}
	if first.UnitPrice == nil || !first.UnitPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("unit price = %v, want 10.00", first.UnitPrice)
	}
	if !first.Total.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("total = %s, want 20.00", first.Total)
	}

	shipping := items[1]
	if shipping.Quantity != nil || shipping.UnitPrice != nil {
		t.Fatalf("empty cells must map to absent, got %+v", shipping)
	}

	mystery := items[2]
	if mystery.Quantity != nil || mystery.UnitPrice != nil {
		t.Fatalf("unparsable cells must map to absent, got %+v", mystery)
	}
	if !mystery.Total.IsZero() {
		t.Fatalf("unparsable total must default to zero, got %s", mystery.Total)
	}
}

func TestItemsFromTablesIgnoresHeaderlessTables(t *testing.T) {
	tables := [][][]string{
		{{"only one row"}},
		{{"col a", "col b"}, {"x", "y"}}, // no recognizable headers
	}
	if items := ItemsFromTables(tables); len(items) != 0 {
		t.Fatalf("got %d items from unusable tables", len(items))
	}
}

func TestItemsFromLines(t *testing.T) {
	text := strings.Join([]string{
		"Acme Supplies Co.",
		"Consulting services    1,200.00",
		"Widget assembly $45.00",
		"Tea $4.50",        // description too short
		"$99.00",           // no description
		"Subtotal not a number",
		"",
	}, "\n")

	items := ItemsFromLines(text)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}
	if items[0].Description != "Consulting services" || !items[0].Total.Equal(decimal.RequireFromString("1200.00")) {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Description != "Widget assembly" || !items[1].Total.Equal(decimal.RequireFromString("45.00")) {
		t.Fatalf("unexpected second item %+v", items[1])
	}
	for _, it := range items {
		if it.Quantity != nil || it.UnitPrice != nil {
			t.Fatalf("line-scan items must not carry quantity or unit price: %+v", it)
		}
	}
}

func TestItemsFromLinesUnseparatedAmount(t *testing.T) {
	// A four-digit amount without a thousands separator belongs to the
	// amount, not the description.
	items := ItemsFromLines("Consulting services 1200.00\n")
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1: %+v", len(items), items)
	}
	if items[0].Description != "Consulting services" {
		t.Fatalf("description = %q, want %q", items[0].Description, "Consulting services")
	}
	if !items[0].Total.Equal(decimal.RequireFromString("1200.00")) {
		t.Fatalf("total = %s, want 1200.00", items[0].Total)
	}
}

func TestCapItems(t *testing.T) {
	var lines []string
	for i := 0; i < 75; i++ {
		lines = append(lines, fmt.Sprintf("Billable unit %02d $%d.00", i, i+1))
	}
	items := ItemsFromLines(strings.Join(lines, "\n"))
	if len(items) != 75 {
		t.Fatalf("scan produced %d items, want 75", len(items))
	}
	capped := CapItems(items)
	if len(capped) != MaxLineItems {
		t.Fatalf("capped to %d items, want %d", len(capped), MaxLineItems)
	}
	// order preserved, excess dropped from the tail
	if capped[0].Description != "Billable unit 00" || capped[49].Description != "Billable unit 49" {
		t.Fatalf("cap reordered items: first=%q last=%q", capped[0].Description, capped[49].Description)
	}
}
