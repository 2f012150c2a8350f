// Package extract derives structured invoice data from raw text and
// detected tables. Everything here is deterministic, pattern-driven and
// best-effort: a field that no pattern matches stays absent, which is a
// first-class value, never an error.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arhammirker1/invoiceai/internal/entity"
)

// Ordered pattern tables, first match wins. New invoice layouts are covered
// by appending patterns, not by touching control flow.
var (
	// Whitespace inside these stays [ \t]: \s would cross line breaks and
	// capture the body of the next line after a bare "INVOICE" heading.
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice[ \t]*#[ \t]*:?[ \t]*([A-Za-z0-9\-]+)`),
		regexp.MustCompile(`(?i)inv[ \t]*#[ \t]*:?[ \t]*([A-Za-z0-9\-]+)`),
		regexp.MustCompile(`(?i)invoice(?:[ \t]+(?:no|num|number))?\.?[ \t]*:[ \t]*([A-Za-z0-9\-]*\d[A-Za-z0-9\-]*)`),
		regexp.MustCompile(`#[ \t]*([A-Za-z0-9\-]{3,})`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)date:\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
	}
	// Tried in order against whatever substring matched above; the first
	// format that parses cleanly wins. Non-padded layouts, so 1/5/2024
	// parses as well as 01/05/2024.
	dateFormats = []string{"1/2/2006", "2/1/2006", "2006-01-02", "1-2-2006"}

	// Thousands separators are optional: \d+ before the separator groups,
	// or 1200.00 would truncate to its first three digits.
	amountGroup   = `(\d+(?:,\d{3})*(?:\.\d{2})?)`
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total\s*:?\s*\$?` + amountGroup),
		regexp.MustCompile(`(?i)amount\s+due\s*:?\s*\$?` + amountGroup),
	}
	bareAmountPattern = regexp.MustCompile(`\$` + amountGroup)

	vendorSkipWords = regexp.MustCompile(`(?i)invoice|bill|receipt|date|total`)
)

const (
	vendorScanLines  = 8
	vendorMinLen     = 3   // exclusive
	vendorMaxLen     = 100 // exclusive
	vendorDigitRatio = 0.5 // must be below
)

// Options tunes field extraction per acquisition path.
type Options struct {
	// IncludeBareAmounts admits bare "$X" matches as total candidates. Only
	// the table-less OCR path sets this; labeled amounts are preferred when
	// structure was available.
	IncludeBareAmounts bool
}

// Fields extracts the header fields from raw text. It is a pure function of
// its input: identical text yields identical records.
func Fields(text string, opts Options) entity.ExtractedRecord {
	var rec entity.ExtractedRecord

	if num := firstCapture(invoiceNumberPatterns, text); num != "" {
		rec.InvoiceNumber = &num
	}
	if d, ok := extractDate(text); ok {
		rec.InvoiceDate = &d
	}
	if vendor, ok := extractVendor(text); ok {
		rec.VendorName = &vendor
	}
	if total, ok := extractTotal(text, opts.IncludeBareAmounts); ok {
		rec.TotalAmount = &total
	}
	return rec
}

func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractDate(text string) (time.Time, bool) {
	for _, p := range datePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, layout := range dateFormats {
			if d, err := time.Parse(layout, m[1]); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// extractVendor scans the first few non-blank lines for something that looks
// like a company name: not a document label, not numeric-heavy, plausibly
// sized. Known to misfire on atypical layouts; that is accepted.
func extractVendor(text string) (string, bool) {
	var scanned int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		scanned++
		if scanned > vendorScanLines {
			break
		}
		if vendorSkipWords.MatchString(line) {
			continue
		}
		n := len(line)
		if n <= vendorMinLen || n >= vendorMaxLen {
			continue
		}
		if digitRatio(line) >= vendorDigitRatio {
			continue
		}
		return line, true
	}
	return "", false
}

func digitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	var digits int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return float64(digits) / float64(len(s))
}

// extractTotal collects every labeled amount in the text (plus bare dollar
// amounts when admitted) and reports the maximum. "Total"/"Amount Due"
// phrasing often repeats a running subtotal before the final figure; the
// largest candidate is empirically the grand total.
func extractTotal(text string, includeBare bool) (decimal.Decimal, bool) {
	patterns := totalPatterns
	if includeBare {
		patterns = append(append([]*regexp.Regexp{}, totalPatterns...), bareAmountPattern)
	}

	var best decimal.Decimal
	found := false
	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			amt, err := ParseAmount(m[1])
			if err != nil {
				continue
			}
			if !found || amt.GreaterThan(best) {
				best = amt
				found = true
			}
		}
	}
	return best, found
}

// ParseAmount parses a monetary string after stripping thousands separators
// and currency prefixes.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}
