// Package backend selects a reasoning service implementation from config.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/llm"
	"github.com/joseph-ayodele/proposal-extractor/internal/llm/anthropic"
	"github.com/joseph-ayodele/proposal-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/proposal-extractor/internal/llm/openai"
)

// New returns the VisionCompleter for cfg.Provider (openai when empty).
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.VisionCompleter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "llm")

	switch cfg.Provider {
	case "", "openai":
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown llm provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}
