// Package acquire turns a document file into raw text and, when possible,
// detected tables. Acquisition is an ordered list of strategies tried in
// sequence: a failed or empty method falls through to the next, and only a
// failure of the last method fails the chain as a whole.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/arhammirker1/invoiceai/constants"
	"github.com/arhammirker1/invoiceai/internal/common"
)

// Method names recorded on results.
const (
	MethodPDFText   = "pdf-text"
	MethodPDFTables = "pdf-tables"
	MethodPDFOCR    = "pdf-ocr"
	MethodImageOCR  = "image-ocr"
)

// Result is what a successful acquisition method produced. Text may be empty
// when only tables were found; Tables is nil on the OCR paths.
type Result struct {
	Text   string
	Tables [][][]string
	Method string
	Pages  int
}

// Empty reports whether the result carries neither text nor tables.
func (r *Result) Empty() bool {
	return r == nil || (strings.TrimSpace(r.Text) == "" && len(r.Tables) == 0)
}

// Strategy is one acquisition method. Returning (nil, nil) means the method
// ran but found nothing usable; an error means the method itself failed.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, path string) (*Result, error)
}

// Chain tries strategies in order until one yields a non-empty result.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Run walks the chain. Failures of non-final methods are logged and
// swallowed; a failure of the final method, or exhaustion of all methods,
// fails the acquisition.
func (c *Chain) Run(ctx context.Context, path string) (*Result, error) {
	for i, s := range c.strategies {
		res, err := s.Attempt(ctx, path)
		if err != nil {
			if i == len(c.strategies)-1 {
				return nil, fmt.Errorf("%s: %w", s.Name(), err)
			}
			c.logger.Warn("acquire.method.failed", "method", s.Name(), "path", path, "error", err)
			continue
		}
		if res.Empty() {
			c.logger.Debug("acquire.method.empty", "method", s.Name(), "path", path)
			continue
		}
		c.logger.Info("acquire.method.ok",
			"method", s.Name(), "path", path, "pages", res.Pages,
			"text_bytes", len(res.Text), "tables", len(res.Tables))
		return res, nil
	}
	return nil, fmt.Errorf("all acquisition methods exhausted for %s", filepath.Base(path))
}

// Selector picks the chain for a file by its extension: the PDF fallback
// chain for .pdf, the OCR-only chain for raster images.
type Selector struct {
	pdfChain   *Chain
	imageChain *Chain
}

func NewSelector(pdfChain, imageChain *Chain) *Selector {
	return &Selector{pdfChain: pdfChain, imageChain: imageChain}
}

// Acquire classifies path and runs the matching chain. Unsupported
// extensions are rejected up front.
func (s *Selector) Acquire(ctx context.Context, path string) (*Result, error) {
	switch constants.MapExtToFormat(filepath.Ext(path)) {
	case constants.PDF:
		return s.pdfChain.Run(ctx, path)
	case constants.IMAGE:
		return s.imageChain.Run(ctx, path)
	default:
		return nil, common.NewAppError("UNSUPPORTED_INPUT",
			fmt.Sprintf("unsupported file type: %q", filepath.Ext(path)), common.ErrUnsupportedInput)
	}
}
