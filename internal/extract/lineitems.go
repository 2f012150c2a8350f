package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arhammirker1/invoiceai/internal/entity"
)

// MaxLineItems caps how many line items are persisted per document. Excess
// items are silently dropped.
const MaxLineItems = 50

// Header keywords for locating columns in a detected table grid. The first
// header containing a keyword wins, per field, independently.
var (
	descriptionKeywords = []string{"description", "item", "product", "service"}
	quantityKeywords    = []string{"qty", "quantity", "amount"}
	unitPriceKeywords   = []string{"price", "rate", "cost"}
	totalKeywords       = []string{"total", "amount", "subtotal"}

	nonNumericChars = regexp.MustCompile(`[^0-9.\-]`)

	// A monetary amount terminating a line: optional $, optional thousands
	// groups, exactly two decimal places. \d+ before the separator groups
	// keeps 1200.00 whole instead of splitting it as 1|200.00.
	trailingAmount = regexp.MustCompile(`\$?(\d+(?:,\d{3})*\.\d{2})\s*$`)
)

const lineScanMinDescription = 3 // exclusive

// ItemsFromTables reconstructs line items from detected table grids. Row 0
// of each table is treated as headers; rows whose description cell is blank,
// or that do not reach the highest mapped column, are skipped.
func ItemsFromTables(tables [][][]string) []entity.LineItem {
	var items []entity.LineItem

	for _, table := range tables {
		if len(table) < 2 {
			continue
		}
		headers := make([]string, len(table[0]))
		for i, h := range table[0] {
			headers[i] = strings.ToLower(strings.TrimSpace(h))
		}

		descCol := findColumn(headers, descriptionKeywords)
		qtyCol := findColumn(headers, quantityKeywords)
		priceCol := findColumn(headers, unitPriceKeywords)
		totalCol := findColumn(headers, totalKeywords)

		maxCol := maxIndex(descCol, qtyCol, priceCol, totalCol)
		if maxCol < 0 {
			continue
		}

		for _, row := range table[1:] {
			if len(row) <= maxCol {
				continue
			}
			desc := ""
			if descCol >= 0 {
				desc = strings.TrimSpace(row[descCol])
			}
			if desc == "" {
				continue
			}

			item := entity.LineItem{Description: desc}
			if qtyCol >= 0 {
				item.Quantity = parseCell(row[qtyCol])
			}
			if priceCol >= 0 {
				item.UnitPrice = parseCell(row[priceCol])
			}
			if totalCol >= 0 {
				if total := parseCell(row[totalCol]); total != nil {
					item.Total = *total
				}
			}
			items = append(items, item)
		}
	}
	return items
}

// ItemsFromLines reconstructs line items from raw text when no tables were
// available: any non-blank line ending in a monetary amount becomes an item,
// description before the amount, provided the description is long enough.
// Quantity and unit price are never available on this path.
func ItemsFromLines(text string) []entity.LineItem {
	var items []entity.LineItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		loc := trailingAmount.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		desc := strings.TrimSpace(line[:loc[0]])
		if len(desc) <= lineScanMinDescription {
			continue
		}
		total, err := ParseAmount(line[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		items = append(items, entity.LineItem{Description: desc, Total: total})
	}
	return items
}

// CapItems truncates items at the persistence limit.
func CapItems(items []entity.LineItem) []entity.LineItem {
	if len(items) > MaxLineItems {
		return items[:MaxLineItems]
	}
	return items
}

// findColumn returns the index of the first header containing any keyword,
// or -1.
func findColumn(headers []string, keywords []string) int {
	for i, h := range headers {
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				return i
			}
		}
	}
	return -1
}

func maxIndex(indices ...int) int {
	max := -1
	for _, i := range indices {
		if i > max {
			max = i
		}
	}
	return max
}

// parseCell cleans a table cell of everything but digits, dots and minus
// signs, then parses it. Unparsable cells become absent, not zero.
func parseCell(cell string) *decimal.Decimal {
	cleaned := nonNumericChars.ReplaceAllString(cell, "")
	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}
