package acquire

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arhammirker1/invoiceai/internal/ocr"
	"github.com/arhammirker1/invoiceai/internal/preprocess"
)

// PDFOCRStrategy is the last resort for PDFs: rasterize every page at high
// resolution, preprocess each page image, and recognize it with the OCR
// engine, concatenating text in page order.
type PDFOCRStrategy struct {
	rasterizer *ocr.Rasterizer
	engine     ocr.Engine
	logger     *slog.Logger
}

func NewPDFOCRStrategy(rasterizer *ocr.Rasterizer, engine ocr.Engine, logger *slog.Logger) *PDFOCRStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFOCRStrategy{rasterizer: rasterizer, engine: engine, logger: logger}
}

func (s *PDFOCRStrategy) Name() string { return MethodPDFOCR }

func (s *PDFOCRStrategy) Attempt(ctx context.Context, path string) (*Result, error) {
	pages, cleanup, err := s.rasterizer.RenderPages(ctx, path)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, pagePath := range pages {
		text, err := recognizePreprocessed(ctx, s.engine, pagePath)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", filepath.Base(pagePath), err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return &Result{Text: b.String(), Method: MethodPDFOCR, Pages: len(pages)}, nil
}

// ImageOCRStrategy handles raster inputs, which have neither a text layer
// nor detectable table grids: preprocess the full image and recognize it.
type ImageOCRStrategy struct {
	engine ocr.Engine
	logger *slog.Logger
}

func NewImageOCRStrategy(engine ocr.Engine, logger *slog.Logger) *ImageOCRStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageOCRStrategy{engine: engine, logger: logger}
}

func (s *ImageOCRStrategy) Name() string { return MethodImageOCR }

func (s *ImageOCRStrategy) Attempt(ctx context.Context, path string) (*Result, error) {
	text, err := recognizePreprocessed(ctx, s.engine, path)
	if err != nil {
		return nil, err
	}
	return &Result{Text: text, Method: MethodImageOCR, Pages: 1}, nil
}

// recognizePreprocessed loads an image file, runs the preprocessing
// pipeline, and feeds the cleaned page to the engine via a temp file.
func recognizePreprocessed(ctx context.Context, engine ocr.Engine, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(imagePath), err)
	}

	cleaned := preprocess.Apply(img)

	tmp, err := os.CreateTemp("", "iv-ocr-*.png")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := png.Encode(tmp, cleaned); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	return engine.Recognize(ctx, tmpPath)
}
