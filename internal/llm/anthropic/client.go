package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/internal/llm"
)

var _ llm.VisionCompleter = (*Client)(nil)

// Config for the Anthropic client.
type Config struct {
	APIKey     string
	BaseURL    string // default https://api.anthropic.com/
	Model      string // e.g. "claude-sonnet-4-5"
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements llm.VisionCompleter with the messages API and base64 image blocks.
type Client struct {
	cfg      Config
	messages anthropic.MessageService
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:      cfg,
		messages: anthropic.NewMessageService(cfg.options()...),
		logger:   logger,
	}
}

func (c Config) options() []option.RequestOption {
	url := c.BaseURL
	if url == "" {
		url = "https://api.anthropic.com/"
	}
	url = strings.TrimRight(url, "/") + "/"

	client := c.HTTPClient
	if client == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}

	opts := []option.RequestOption{
		option.WithBaseURL(url),
		option.WithHTTPClient(client),
		option.WithMaxRetries(0),
	}
	if c.APIKey != "" {
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	return opts
}

func (c *Client) Complete(ctx context.Context, req llm.VisionRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"provider", "anthropic",
		"model", c.cfg.Model,
		"images", len(req.Images),
		"max_tokens", req.MaxTokens,
	)

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlock(anthropic.Base64ImageSourceParam{
			Data:      base64.StdEncoding.EncodeToString(img.Data),
			MediaType: anthropic.Base64ImageSourceMediaType(img.MIMEType),
		}))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.User))

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	msg, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: req.System}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(float64(req.Temperature)),
	})
	if err != nil {
		c.logger.Error("llm.complete.error",
			"req_id", rid, "provider", "anthropic", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"provider", "anthropic",
		"stop_reason", msg.StopReason,
		"chars", b.Len(),
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b.String(), nil
}
