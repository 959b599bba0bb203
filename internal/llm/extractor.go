package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core/raster"
)

// ExtractorConfig tunes the completion call.
type ExtractorConfig struct {
	MaxTokens   int     // default 4096
	Temperature float32 // default 0.1
}

// Extractor sends page images to a VisionCompleter and returns its raw reply.
type Extractor struct {
	completer VisionCompleter
	cfg       ExtractorConfig
	logger    *slog.Logger
}

func NewExtractor(completer VisionCompleter, cfg ExtractorConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = constants.DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = constants.DefaultTemperature
	}
	return &Extractor{completer: completer, cfg: cfg, logger: logger}
}

// Extract fails with common.ErrEmptyDocument for zero pages and with
// common.ErrEmptyExtractionResponse when the service returns no content.
func (e *Extractor) Extract(ctx context.Context, pages []raster.PageImage) (string, error) {
	if len(pages) == 0 {
		return "", common.ErrEmptyDocument
	}

	images := make([]Image, 0, len(pages))
	for _, p := range pages {
		images = append(images, Image{
			MIMEType: p.MIMEType,
			DataURI:  p.DataURI(),
			Data:     p.Data,
			Detail:   constants.ImageDetail,
		})
	}

	req := VisionRequest{
		System:      BuildSystemPrompt(),
		User:        BuildUserPrompt(len(pages)),
		Images:      images,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	}

	start := time.Now()
	rid := common.RequestIDFromContext(ctx)
	e.logger.Info("llm.extract.start", "req_id", rid, "pages", len(pages), "max_tokens", req.MaxTokens)

	text, err := e.completer.Complete(ctx, req)
	if err != nil {
		e.logger.Error("llm.extract.error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		e.logger.Error("llm.extract.empty", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", common.ErrEmptyExtractionResponse
	}

	e.logger.Info("llm.extract.ok", "req_id", rid, "chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
