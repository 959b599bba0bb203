// Package pipeline runs document → pages → model reply → validated →
// reconciled → result, one document per call.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core/raster"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
	"github.com/joseph-ayodele/proposal-extractor/internal/llm"
	"github.com/joseph-ayodele/proposal-extractor/internal/normalize"
	"github.com/joseph-ayodele/proposal-extractor/internal/reconcile"
)

// Config holds pipeline defaults.
type Config struct {
	MaxPages    int // used when Run is called with maxPages <= 0; default 8
	MaxTokens   int
	Temperature float32
}

// Outcome is a finished run with the intermediate artifacts callers may
// want to journal.
type Outcome struct {
	RunID      string
	Pages      int
	Result     *entity.ExtractionResult
	Reconciled entity.ReconciledExtraction
	Report     llm.ValidationReport
}

// Pipeline holds no per-document state and is safe for concurrent use.
type Pipeline struct {
	cfg        Config
	logger     *slog.Logger
	rasterizer raster.Rasterizer
	extractor  *llm.Extractor
	validator  *llm.Validator
	reconciler *reconcile.Reconciler
}

func New(cfg Config, rasterizer raster.Rasterizer, completer llm.VisionCompleter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = constants.DefaultMaxPages
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		rasterizer: rasterizer,
		extractor:  llm.NewExtractor(completer, llm.ExtractorConfig{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}, logger),
		validator:  llm.NewValidator(logger),
		reconciler: reconcile.NewReconciler(logger),
	}
}

// Run extracts a result from doc. Rasterization and extraction errors abort
// the run; schema mismatches are absorbed. There are no retries and no
// internal timeout: callers bound ctx.
func (p *Pipeline) Run(ctx context.Context, doc []byte, maxPages int) (*entity.ExtractionResult, error) {
	out, err := p.Process(ctx, doc, maxPages)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Process is Run plus the intermediate artifacts.
func (p *Pipeline) Process(ctx context.Context, doc []byte, maxPages int) (*Outcome, error) {
	if maxPages <= 0 {
		maxPages = p.cfg.MaxPages
	}
	runID := common.RequestIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = common.WithRequestID(ctx, runID)
	}
	logger := p.logger.With("run_id", runID)
	if src := common.SourceFromContext(ctx); src != "" {
		logger = logger.With("source", src)
	}

	start := time.Now()
	logger.Info("pipeline.run.start", "bytes", len(doc), "max_pages", maxPages)

	stage := time.Now()
	pages, err := p.rasterizer.Rasterize(ctx, doc, maxPages)
	if err != nil {
		logger.Error("pipeline.stage.error", "stage", "rasterize", "error", err)
		return nil, common.WrapError(err, "rasterize")
	}
	logger.Info("pipeline.stage.ok", "stage", "rasterize", "pages", len(pages), "elapsed_ms", time.Since(stage).Milliseconds())

	stage = time.Now()
	text, err := p.extractor.Extract(ctx, pages)
	if err != nil {
		logger.Error("pipeline.stage.error", "stage", "extract", "error", err)
		return nil, common.WrapError(err, "extract")
	}
	logger.Info("pipeline.stage.ok", "stage", "extract", "elapsed_ms", time.Since(stage).Milliseconds())

	stage = time.Now()
	validated, report, err := p.validator.Validate(text)
	if err != nil {
		logger.Error("pipeline.stage.error", "stage", "validate", "error", err)
		return nil, common.WrapError(err, "validate")
	}
	logger.Info("pipeline.stage.ok", "stage", "validate", "degraded", report.Degraded, "elapsed_ms", time.Since(stage).Milliseconds())

	reconciled := p.reconciler.Reconcile(validated)
	reconciled.Degraded = report.Degraded

	result := normalize.ToExtractionResult(reconciled)
	logger.Info("pipeline.run.ok",
		"confidence", result.Confidence,
		"confused", reconciled.IsDataConfused,
		"services", len(result.Services),
		"total_price", result.TotalPrice,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return &Outcome{
		RunID:      runID,
		Pages:      len(pages),
		Result:     &result,
		Reconciled: reconciled,
		Report:     report,
	}, nil
}
