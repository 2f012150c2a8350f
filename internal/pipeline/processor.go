// Package pipeline drives one document through acquisition, extraction and
// artifact generation, advancing its status at each hand-off.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arhammirker1/invoiceai/constants"
	"github.com/arhammirker1/invoiceai/internal/acquire"
	"github.com/arhammirker1/invoiceai/internal/common"
	"github.com/arhammirker1/invoiceai/internal/entity"
	"github.com/arhammirker1/invoiceai/internal/extract"
	"github.com/arhammirker1/invoiceai/internal/repository"
)

// Acquirer produces raw text and tables from a document file.
type Acquirer interface {
	Acquire(ctx context.Context, path string) (*acquire.Result, error)
}

// ArtifactGenerator writes the extracted record to an output workbook.
type ArtifactGenerator interface {
	Generate(ctx context.Context, rec entity.ExtractedRecord, sourcePath, outPath string) error
}

// Processor runs the end-to-end flow for a single document.
type Processor struct {
	store     repository.DocumentStore
	acquirer  Acquirer
	generator ArtifactGenerator
	excelDir  string
	logger    *slog.Logger
}

func NewProcessor(store repository.DocumentStore, acquirer Acquirer, generator ArtifactGenerator, excelDir string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:     store,
		acquirer:  acquirer,
		generator: generator,
		excelDir:  excelDir,
		logger:    logger,
	}
}

// Process takes a document from PENDING to COMPLETED or FAILED. Files with
// an unsupported extension are rejected before the document is claimed, so
// they stay PENDING. A document another worker already claimed is skipped
// silently.
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID) error {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if !constants.IsAllowedExt(filepath.Ext(doc.OriginalPath)) {
		return common.NewAppError("UNSUPPORTED_INPUT",
			fmt.Sprintf("document %s: unsupported file type %q", documentID, filepath.Ext(doc.OriginalPath)),
			common.ErrUnsupportedInput)
	}

	if !constants.CanTransition(doc.Status, constants.StatusProcessing) {
		p.logger.Info("pipeline.skip.status", "document_id", documentID, "status", doc.Status)
		return nil
	}

	claimed, err := p.store.ClaimProcessing(ctx, documentID)
	if err != nil {
		return err
	}
	if !claimed {
		p.logger.Info("pipeline.skip.claimed", "document_id", documentID)
		return nil
	}

	if err := p.run(ctx, doc); err != nil {
		p.fail(ctx, documentID, err)
		return err
	}
	return nil
}

func (p *Processor) run(ctx context.Context, doc *entity.Document) error {
	res, err := p.acquirer.Acquire(ctx, doc.OriginalPath)
	if err != nil {
		return common.WrapError(err, "acquire text")
	}

	rec := extract.Fields(res.Text, extract.Options{
		// Bare amounts are too noisy when structured tables already carry
		// per-row totals.
		IncludeBareAmounts: len(res.Tables) == 0,
	})

	var items []entity.LineItem
	if len(res.Tables) > 0 {
		items = extract.ItemsFromTables(res.Tables)
	} else {
		items = extract.ItemsFromLines(res.Text)
	}
	rec.LineItems = extract.CapItems(items)

	outPath := filepath.Join(p.excelDir, excelName(doc))
	if err := p.generator.Generate(ctx, rec, doc.OriginalPath, outPath); err != nil {
		return common.WrapError(err, "generate workbook")
	}

	if err := p.store.CompleteExtraction(ctx, doc.ID, rec, outPath); err != nil {
		return common.WrapError(err, "persist extraction")
	}
	p.logger.Info("pipeline.done",
		"document_id", doc.ID, "method", res.Method, "line_items", len(rec.LineItems), "excel", outPath)
	return nil
}

// fail records the terminal FAILED state. The processing error itself is
// still returned to the caller by Process; a failure to even record it is
// only logged. The cause may be the invocation context's own expiry, so the
// write runs on a detached context — otherwise a timed-out run would strand
// the document in PROCESSING.
func (p *Processor) fail(ctx context.Context, documentID uuid.UUID, cause error) {
	msg := cause.Error()
	if strings.TrimSpace(msg) == "" {
		msg = "processing failed"
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.store.MarkFailed(ctx, documentID, msg); err != nil {
		p.logger.Error("pipeline.mark_failed.error", "document_id", documentID, "error", err)
	}
}

// excelName derives the artifact filename: original stem plus the document
// id, so repeated uploads of the same file never collide.
func excelName(doc *entity.Document) string {
	base := filepath.Base(doc.Filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "invoice"
	}
	return fmt.Sprintf("%s_%s.xlsx", stem, doc.ID)
}

// IsUnsupported reports whether err is the pre-claim rejection for a file
// type the pipeline cannot read.
func IsUnsupported(err error) bool {
	return errors.Is(err, common.ErrUnsupportedInput)
}
