// invoiced is the extraction daemon: it watches the documents table for
// PENDING rows and runs each one through the processing pipeline.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/arhammirker1/invoiceai/internal/acquire"
	"github.com/arhammirker1/invoiceai/internal/async"
	"github.com/arhammirker1/invoiceai/internal/common"
	"github.com/arhammirker1/invoiceai/internal/export"
	"github.com/arhammirker1/invoiceai/internal/ingest"
	"github.com/arhammirker1/invoiceai/internal/ocr"
	"github.com/arhammirker1/invoiceai/internal/pipeline"
	"github.com/arhammirker1/invoiceai/internal/repository"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Storage.ExcelDir, 0o755); err != nil {
		logger.Error("cannot create excel directory", "dir", cfg.Storage.ExcelDir, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repository.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	store := repository.NewDocumentRepository(pool, logger)

	runner := ocr.ExecRunner{}
	rasterizer := ocr.NewRasterizer(cfg.OCR.Pdftoppm, cfg.OCR.DPI, cfg.OCR.MaxPages, runner)
	engine := ocr.NewTesseract(cfg.OCR.Tesseract, cfg.OCR.Language, runner, logger)

	pdfChain := acquire.NewChain(logger,
		acquire.NewPDFTextStrategy(logger),
		acquire.NewPDFTableStrategy(logger),
		acquire.NewPDFOCRStrategy(rasterizer, engine, logger),
	)
	imageChain := acquire.NewChain(logger,
		acquire.NewImageOCRStrategy(engine, logger),
	)
	selector := acquire.NewSelector(pdfChain, imageChain)

	generator := export.NewGenerator(rasterizer, logger)
	processor := pipeline.NewProcessor(store, selector, generator, cfg.Storage.ExcelDir, logger)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	poller := async.NewPoller(store, queue, cfg.Queue.PollInterval, logger)
	go poller.Run(ctx)

	if cfg.Storage.UploadDir != "" {
		if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
			logger.Error("cannot create upload directory", "dir", cfg.Storage.UploadDir, "error", err)
			os.Exit(1)
		}
		userID := uuid.Nil
		if cfg.Storage.IngestUserID != "" {
			userID, err = uuid.Parse(cfg.Storage.IngestUserID)
			if err != nil {
				logger.Error("invalid INGEST_USER_ID", "error", err)
				os.Exit(1)
			}
		}
		ingestor := ingest.NewIngestor(store, queue, userID, logger)
		go func() {
			err := ingestor.Watch(ctx, ingest.WatchConfig{
				Root:        cfg.Storage.UploadDir,
				InitialScan: true,
				Debounce:    500 * time.Millisecond,
			})
			if err != nil {
				logger.Error("upload watcher failed", "dir", cfg.Storage.UploadDir, "error", err)
			}
		}()
	}

	logger.Info("invoiced started",
		"workers", cfg.Queue.Workers,
		"poll_interval", cfg.Queue.PollInterval,
		"excel_dir", cfg.Storage.ExcelDir)

	<-ctx.Done()
	logger.Info("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
	logger.Info("stopped")
}
