package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/ingest"
	"github.com/dgallion1/docnav/internal/library"
	"github.com/dgallion1/docnav/internal/metrics"
)

// Worker processes a single document job.
type Worker struct {
	lib     *library.Library
	opts    ingest.Options
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewWorker(lib *library.Library, opts ingest.Options, m *metrics.Metrics, log *slog.Logger) *Worker {
	return &Worker{lib: lib, opts: opts, metrics: m, log: log}
}

// Process parses the job's content, skips it when an identical document is
// already loaded, and otherwise registers it in the library.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename, "url", job.URL)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	idx, source, err := w.load(ctx, job)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		w.finish(job, StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		idx.Metadata["title"] = job.Title
	}

	// Phase 2: Dedup check
	hash := library.ContentHash(idx)
	if existing, ok := w.lib.FindByHash(hash); ok {
		log.Info("duplicate document, skipping", "existing_doc_id", existing)
		job.MarkDuplicate(existing)
		job.releaseData()
		w.metrics.IngestFinished(string(StatusDupSkipped))
		return
	}

	// Phase 3: Index and register
	job.SetStatus(StatusIndexing, "indexing")
	if _, err := w.lib.Add(idx, source, hash); err != nil {
		log.Error("index failed", "error", err)
		job.AddError(fmt.Sprintf("index: %s", err))
		w.finish(job, StatusFailed, "indexing")
		return
	}
	job.SetIndexed(idx.DocumentID, hash, idx.Len())
	job.releaseData()
	log.Info("document ingested", "doc_id", idx.DocumentID, "sections", idx.Len())
	w.finish(job, StatusCompleted, "done")
}

func (w *Worker) load(ctx context.Context, job *Job) (*doctree.Index, string, error) {
	if job.URL != "" {
		idx, err := ingest.LoadURL(ctx, job.URL, w.opts)
		return idx, job.URL, err
	}
	data := job.FileData()
	if len(data) == 0 {
		return nil, "", fmt.Errorf("no extractable content")
	}
	idx, err := ingest.LoadReader(bytes.NewReader(data), job.Filename, job.DocID, w.opts)
	return idx, job.Filename, err
}

func (w *Worker) finish(job *Job, status JobStatus, phase string) {
	job.SetStatus(status, phase)
	w.metrics.IngestFinished(string(status))
}
