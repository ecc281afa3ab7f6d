package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fineprocessing/fines-processor/internal/fines"
	"github.com/fineprocessing/fines-processor/internal/gemini"
	"github.com/fineprocessing/fines-processor/internal/queue"
	"github.com/fineprocessing/fines-processor/internal/storage"
)

// Extractor is the extraction seam the processor depends on.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (gemini.TrafficFine, json.RawMessage, error)
}

// Result reports a successfully processed job.
type Result struct {
	Status string
}

// Processor runs one job end to end: mark processing, resolve the
// storage path, download, extract, normalize, mark processed. Whatever
// fails, the fine ends in a terminal state: any error triggers a
// best-effort error-status write before the original failure is returned
// to the queue.
type Processor struct {
	store      fines.Store
	downloader storage.Downloader
	extractor  Extractor
	bucket     string
	log        *slog.Logger
}

func New(store fines.Store, downloader storage.Downloader, extractor Extractor, bucket string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:      store,
		downloader: downloader,
		extractor:  extractor,
		bucket:     bucket,
		log:        logger,
	}
}

// Process handles one delivery. Safe to re-run on redelivery: the
// processing mark and the processed mark are plain updates.
func (p *Processor) Process(ctx context.Context, job *queue.Job) (Result, error) {
	res, err := p.run(ctx, job)
	if err == nil {
		return res, nil
	}

	// Recovery: record the failure on the fine. Runs without the job
	// deadline so a timed-out job still reaches a terminal state. A
	// failure of this write is logged but never replaces the original
	// error; the queue must still see the job as failed.
	payload := job.Payload
	recoveryCtx := context.WithoutCancel(ctx)
	if _, markErr := p.store.MarkFailed(recoveryCtx, payload.RecordID, payload.FileName, err.Error(), payload.Webhook); markErr != nil {
		p.log.Error("processor.mark_failed_error",
			"job_id", job.ID,
			"fine_id", payload.RecordID,
			"original_error", err,
			"mark_error", markErr,
		)
	}
	return Result{}, err
}

func (p *Processor) run(ctx context.Context, job *queue.Job) (Result, error) {
	payload := job.Payload
	start := time.Now()

	p.log.Info("processor.job.start",
		"job_id", job.ID,
		"fine_id", payload.RecordID,
		"file_name", payload.FileName,
		"attempt", job.Attempts,
	)

	processing, err := p.store.MarkProcessing(ctx, payload.RecordID, payload.FileName, payload.Webhook)
	if err != nil {
		return Result{}, fmt.Errorf("mark processing: %w", err)
	}
	if processing.UpdatedCount == 0 {
		return Result{}, fmt.Errorf("no fine matched for processing update")
	}

	fileURL, err := p.store.FileURL(ctx, payload.RecordID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve storage path: %w", err)
	}
	if fileURL == "" {
		return Result{}, fmt.Errorf("missing storage path for fine")
	}
	p.log.Info("processor.path.resolved", "fine_id", payload.RecordID, "file_url", fileURL, "bucket", p.bucket)

	pdf, err := p.downloader.Download(ctx, p.bucket, fileURL)
	if err != nil {
		return Result{}, fmt.Errorf("download document: %w", err)
	}
	p.log.Info("processor.document.downloaded", "fine_id", payload.RecordID, "pdf_bytes", len(pdf))

	extracted, raw, err := p.extractor.Extract(ctx, pdf)
	if err != nil {
		return Result{}, fmt.Errorf("extract document: %w", err)
	}

	normalization := fines.Normalize(extracted, raw)
	p.log.Info("processor.extraction.normalized",
		"fine_id", payload.RecordID,
		"fine_number", deref(normalization.Updates.FineNumber),
		"fine_date", deref(normalization.Updates.FineDate),
		"location", deref(normalization.Updates.Location),
		"violation_type", deref(normalization.Updates.ViolationType),
		"validation_errors", len(normalization.ValidationErrors),
	)
	if len(normalization.ValidationErrors) > 0 {
		return Result{}, fmt.Errorf("invalid extracted data: %s", strings.Join(normalization.ValidationErrors, "; "))
	}

	processed, err := p.store.MarkProcessedWithExtraction(ctx, payload.RecordID, payload.FileName, normalization.Updates)
	if err != nil {
		return Result{}, fmt.Errorf("mark processed: %w", err)
	}
	if processed.UpdatedCount == 0 {
		// The row vanished or was renamed between the two writes.
		return Result{}, fmt.Errorf("no fine matched for processed update")
	}

	p.log.Info("processor.job.ok",
		"job_id", job.ID,
		"fine_id", payload.RecordID,
		"matched_by", string(processed.MatchedBy),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Status: "success"}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
