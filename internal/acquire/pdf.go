package acquire

import (
	"context"
	"log/slog"
	"strings"

	pdfplumber "github.com/pyhub-apps/pdfplumber-golang"
)

// PDFTextStrategy reads the PDF's native text layer across all pages and
// independently collects any line-grid tables. It hits whenever the
// concatenated text is non-empty, which short-circuits the chain before any
// OCR pass even if table detection found nothing.
type PDFTextStrategy struct {
	logger *slog.Logger
}

func NewPDFTextStrategy(logger *slog.Logger) *PDFTextStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTextStrategy{logger: logger}
}

func (s *PDFTextStrategy) Name() string { return MethodPDFText }

func (s *PDFTextStrategy) Attempt(ctx context.Context, path string) (*Result, error) {
	doc, err := pdfplumber.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var b strings.Builder
	var tables [][][]string
	pages := doc.GetPages()
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(page.ExtractText())
		for _, tbl := range page.ExtractTables() {
			tables = append(tables, tbl.Rows)
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		// No text layer; tables found alongside empty text do not rescue
		// this method, the dedicated table strategy runs next.
		return nil, nil
	}
	return &Result{Text: b.String(), Tables: tables, Method: MethodPDFText, Pages: len(pages)}, nil
}

// PDFTableStrategy is the geometric fallback for scanned-looking PDFs that
// still carry positioned text: it detects tables from text placement alone
// and hits when any page yields at least one table.
type PDFTableStrategy struct {
	logger *slog.Logger
}

func NewPDFTableStrategy(logger *slog.Logger) *PDFTableStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTableStrategy{logger: logger}
}

func (s *PDFTableStrategy) Name() string { return MethodPDFTables }

func (s *PDFTableStrategy) Attempt(ctx context.Context, path string) (*Result, error) {
	doc, err := pdfplumber.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var tables [][][]string
	pages := doc.GetPages()
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, tbl := range page.ExtractTables(pdfplumber.WithTableStrategy("text", "text")) {
			tables = append(tables, tbl.Rows)
		}
	}

	if len(tables) == 0 {
		return nil, nil
	}
	return &Result{Tables: tables, Method: MethodPDFTables, Pages: len(pages)}, nil
}
