// Package ingest turns files dropped into the upload directory into PENDING
// documents and hands them to the processing queue. Files are deduplicated
// by content hash, so re-dropping the same invoice is a no-op.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/arhammirker1/invoiceai/constants"
	"github.com/arhammirker1/invoiceai/internal/async"
)

// Registrar persists a discovered file as a document.
type Registrar interface {
	RegisterFile(ctx context.Context, userID uuid.UUID, filename, originalPath, contentType, hashHex string) (uuid.UUID, bool, error)
}

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	DocumentID   uuid.UUID
	Deduplicated bool
	HashHex      string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor registers files and queues freshly registered ones for
// processing.
type Ingestor struct {
	registrar Registrar
	queue     async.Queue
	userID    uuid.UUID
	logger    *slog.Logger
}

func NewIngestor(registrar Registrar, queue async.Queue, userID uuid.UUID, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{registrar: registrar, queue: queue, userID: userID, logger: logger}
}

// IngestPath registers one file. Already-known content is reported as
// deduplicated and not re-queued.
func (i *Ingestor) IngestPath(ctx context.Context, path string) (Result, error) {
	var out Result

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	ext := filepath.Ext(abs)
	if !constants.IsAllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension %q", ext)
	}

	hashHex, err := hashFile(abs)
	if err != nil {
		return out, err
	}

	id, created, err := i.registrar.RegisterFile(ctx, i.userID, filepath.Base(abs), abs,
		contentTypeForExt(ext), hashHex)
	if err != nil {
		return out, err
	}

	out = Result{
		SourcePath:   abs,
		DocumentID:   id,
		Deduplicated: !created,
		HashHex:      hashHex,
	}
	if !created {
		i.logger.Debug("file already ingested", "path", abs, "document_id", id)
		return out, nil
	}

	if err := i.queue.Enqueue(ctx, async.Job{DocumentID: id, SubmittedAt: time.Now()}); err != nil {
		return out, err
	}
	return out, nil
}

// IngestDirectory registers every matching file under root.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string) ([]Result, DirStats, error) {
	var (
		results []Result
		stats   DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res, err := i.IngestPath(ctx, path)
		if err != nil {
			stats.Failed++
			i.logger.Warn("ingest failed", "path", path, "error", err)
			return nil
		}
		if res.Deduplicated {
			stats.Deduplicated++
		} else {
			stats.Succeeded++
		}
		results = append(results, res)
		return nil
	})
	return results, stats, err
}

// Watch consumes watcher events until ctx is cancelled.
func (i *Ingestor) Watch(ctx context.Context, cfg WatchConfig) error {
	events, errs, err := StartWatcher(ctx, cfg, i.logger)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := i.IngestPath(ctx, path); err != nil {
				i.logger.Warn("ingest failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if ok && err != nil {
				i.logger.Error("watcher error", "error", err)
			}
		}
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func contentTypeForExt(ext string) string {
	switch constants.NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
