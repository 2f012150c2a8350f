// Package ocr wraps the external recognition and rasterization tools the
// acquisition chain shells out to. The engine is a black box with a fixed
// recognition mode; its failures are the caller's to handle.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
)

// Recognition mode is fixed: PSM 6 assumes a single uniform block of text,
// OEM 1 selects the LSTM engine only.
const (
	pageSegMode = "6"
	engineMode  = "1"
)

// Engine converts a page image into text.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Tesseract is the production Engine, invoking the tesseract binary through
// a Runner.
type Tesseract struct {
	Binary   string // if empty -> "tesseract"
	Language string // if empty -> "eng"

	runner Runner
	logger *slog.Logger
}

func NewTesseract(binary, language string, runner Runner, logger *slog.Logger) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tesseract{Binary: binary, Language: language, runner: runner, logger: logger}
}

// Recognize runs: tesseract <img> stdout -l <lang> --psm 6 --oem 1
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", t.Language, "--psm", pageSegMode, "--oem", engineMode}
	out, errb, err := t.runner.Run(ctx, t.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, string(errb))
	}
	return string(out), nil
}
