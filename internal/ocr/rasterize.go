package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Rasterizer renders PDF pages to PNG files via pdftoppm.
type Rasterizer struct {
	Binary   string // if empty -> "pdftoppm"
	DPI      int    // if <=0 -> 300
	MaxPages int    // 0 = no limit

	runner Runner
}

func NewRasterizer(binary string, dpi, maxPages int, runner Runner) *Rasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Rasterizer{Binary: binary, DPI: dpi, MaxPages: maxPages, runner: runner}
}

// RenderPages renders every page of the PDF at the configured DPI into a
// temp directory and returns the page images in page order. Call cleanup()
// to remove them.
func (r *Rasterizer) RenderPages(ctx context.Context, pdfPath string) (pages []string, cleanup func(), err error) {
	tmpDir, err := os.MkdirTemp("", "iv-pp-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.Binary, "-r", fmt.Sprintf("%d", r.DPI), "-png", pdfPath, prefix)
	if err != nil {
		return nil, cleanup, fmt.Errorf("pdftoppm: %w (%s)", err, string(errb))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.MaxPages > 0 && len(matches) > r.MaxPages {
		matches = matches[:r.MaxPages]
	}
	if len(matches) == 0 {
		return nil, cleanup, fmt.Errorf("pdftoppm produced no images")
	}
	return matches, cleanup, nil
}

// RenderFirstPage renders only the first page, for preview embedding.
func (r *Rasterizer) RenderFirstPage(ctx context.Context, pdfPath string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "iv-preview-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := r.runner.Run(ctx, r.Binary, "-r", fmt.Sprintf("%d", r.DPI), "-png", "-f", "1", "-l", "1", pdfPath, prefix)
	if err != nil {
		return "", cleanup, fmt.Errorf("pdftoppm: %w (%s)", err, string(errb))
	}
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return "", cleanup, fmt.Errorf("pdftoppm produced no preview image")
	}
	sort.Strings(matches)
	return matches[0], cleanup, nil
}
