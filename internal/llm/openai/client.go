package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"

	"github.com/joseph-ayodele/proposal-extractor/internal/llm"
)

var _ llm.VisionCompleter = (*Client)(nil)

// Client implements llm.VisionCompleter with chat completions and image_url parts.
type Client struct {
	cfg         Config
	completions openai.ChatCompletionService
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:         cfg,
		completions: openai.NewChatCompletionService(cfg.options()...),
		logger:      logger,
	}
}

func (c *Client) Complete(ctx context.Context, req llm.VisionRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"images", len(req.Images),
		"max_tokens", req.MaxTokens,
	)

	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.User)}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    img.DataURI,
			Detail: img.Detail,
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(parts),
		},
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.completions.New(ctx, params)
	if err != nil {
		c.logger.Error("llm.complete.error",
			"req_id", rid, "provider", "openai", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		c.logger.Warn("llm.complete.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", nil
	}
	content := completion.Choices[0].Message.Content

	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"provider", "openai",
		"finish_reason", completion.Choices[0].FinishReason,
		"chars", len(content),
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
