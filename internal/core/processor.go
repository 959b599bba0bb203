package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/proposal-extractor/internal/ingest"
	"github.com/joseph-ayodele/proposal-extractor/internal/repository"
)

// DocumentFetcher loads source bytes for a document reference.
type DocumentFetcher interface {
	Fetch(ctx context.Context, uri string) (*ingest.Document, error)
}

// Extractor is the pipeline entry point the processor drives.
type Extractor interface {
	Process(ctx context.Context, doc []byte, maxPages int) (*pipeline.Outcome, error)
}

// Report is one processed document.
type Report struct {
	RunID   uuid.UUID // journal row; uuid.Nil when no journal is configured
	Source  string
	Name    string
	Outcome *pipeline.Outcome
}

// Processor coordinates fetch, journal bookkeeping and the extraction pipeline.
type Processor struct {
	logger   *slog.Logger
	fetcher  DocumentFetcher
	pipeline Extractor
	runs     repository.ExtractionRunRepository
	maxPages int
}

// NewProcessor wires a processor. runs may be nil, in which case nothing is
// journaled.
func NewProcessor(
	logger *slog.Logger,
	fetcher DocumentFetcher,
	extractor Extractor,
	runs repository.ExtractionRunRepository,
	maxPages int,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:   logger,
		fetcher:  fetcher,
		pipeline: extractor,
		runs:     runs,
		maxPages: maxPages,
	}
}

// ProcessSource fetches uri and extracts it.
func (p *Processor) ProcessSource(ctx context.Context, uri string) (*Report, error) {
	runID, ctx := p.startRun(ctx, uri, constants.RunStatusRunning)

	doc, err := p.fetcher.Fetch(ctx, uri)
	if err != nil {
		p.fail(ctx, runID, err)
		return &Report{RunID: runID, Source: uri}, fmt.Errorf("fetch: %w", err)
	}
	return p.extract(ctx, runID, doc)
}

// ProcessDocument extracts bytes the caller already holds, such as an upload.
func (p *Processor) ProcessDocument(ctx context.Context, doc *ingest.Document) (*Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", common.ErrInvalidInput)
	}
	runID, ctx := p.startRun(ctx, doc.Source, constants.RunStatusRunning)
	return p.extract(ctx, runID, doc)
}

// Enqueued records a QUEUED run for a source that a worker will pick up
// later. It returns uuid.Nil without a journal.
func (p *Processor) Enqueued(ctx context.Context, source string) uuid.UUID {
	id, _ := p.startRun(ctx, source, constants.RunStatusQueued)
	return id
}

// Abandon finishes a QUEUED run that will never reach a worker.
func (p *Processor) Abandon(ctx context.Context, runID uuid.UUID, cause error) {
	p.fail(ctx, runID, fmt.Errorf("not processed: %w", cause))
}

// ProcessQueued runs a source previously registered with Enqueued.
func (p *Processor) ProcessQueued(ctx context.Context, runID uuid.UUID, uri string) (*Report, error) {
	if runID == uuid.Nil || p.runs == nil {
		return p.ProcessSource(ctx, uri)
	}
	if err := p.runs.MarkRunning(ctx, runID); err != nil {
		p.logger.Warn("processor.journal.mark_running_failed", "run_id", runID, "error", err)
	}
	ctx = p.withRunContext(ctx, runID, uri)

	doc, err := p.fetcher.Fetch(ctx, uri)
	if err != nil {
		p.fail(ctx, runID, err)
		return &Report{RunID: runID, Source: uri}, fmt.Errorf("fetch: %w", err)
	}
	return p.extract(ctx, runID, doc)
}

func (p *Processor) extract(ctx context.Context, runID uuid.UUID, doc *ingest.Document) (*Report, error) {
	rep := &Report{RunID: runID, Source: doc.Source, Name: doc.Name}
	start := time.Now()

	out, err := p.pipeline.Process(ctx, doc.Data, p.maxPages)
	if err != nil {
		p.fail(ctx, runID, err)
		p.logger.Error("processor.extract.failed", "source", doc.Source, "run_id", runID, "error", err)
		return rep, err
	}
	rep.Outcome = out

	if p.runs != nil && runID != uuid.Nil {
		if err := p.runs.FinishSuccess(ctx, runID, repository.RunOutcome{
			Result:         out.Result,
			IsDataConfused: out.Reconciled.IsDataConfused,
			Degraded:       out.Report.Degraded,
		}); err != nil {
			p.logger.Warn("processor.journal.finish_failed", "run_id", runID, "error", err)
		}
	}

	p.logger.Info("processor.extract.ok",
		"source", doc.Source,
		"run_id", runID,
		"pages", out.Pages,
		"services", len(out.Result.Services),
		"total_price", out.Result.TotalPrice,
		"confidence", out.Result.Confidence,
		"confused", out.Reconciled.IsDataConfused,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rep, nil
}

// startRun opens a journal row when a journal is configured. Journal
// failures are logged and never block extraction.
func (p *Processor) startRun(ctx context.Context, source string, status constants.RunStatus) (uuid.UUID, context.Context) {
	if p.runs == nil {
		return uuid.Nil, p.withRunContext(ctx, uuid.Nil, source)
	}
	run, err := p.runs.Start(ctx, source, status)
	if err != nil {
		p.logger.Warn("processor.journal.start_failed", "source", source, "error", err)
		return uuid.Nil, p.withRunContext(ctx, uuid.Nil, source)
	}
	return run.ID, p.withRunContext(ctx, run.ID, source)
}

func (p *Processor) withRunContext(ctx context.Context, runID uuid.UUID, source string) context.Context {
	if source != "" {
		ctx = common.WithSource(ctx, source)
	}
	if runID != uuid.Nil && common.RequestIDFromContext(ctx) == "" {
		ctx = common.WithRequestID(ctx, runID.String())
	}
	return ctx
}

func (p *Processor) fail(ctx context.Context, runID uuid.UUID, cause error) {
	if p.runs == nil || runID == uuid.Nil {
		return
	}
	// a timed-out run still gets its terminal status
	if err := p.runs.FinishFailure(context.WithoutCancel(ctx), runID, cause.Error()); err != nil {
		p.logger.Warn("processor.journal.finish_failed", "run_id", runID, "error", err)
	}
}
