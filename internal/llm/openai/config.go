package openai

import (
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3/option"
)

// Config for the OpenAI client.
type Config struct {
	APIKey     string        // required
	BaseURL    string        // default https://api.openai.com/v1/
	Model      string        // e.g. "gpt-4o"
	Timeout    time.Duration // http client timeout
	HTTPClient *http.Client  // overrides Timeout when set
}

func (c Config) options() []option.RequestOption {
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1/"
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
		// callers own retry policy
		option.WithMaxRetries(0),
	}
	if c.APIKey != "" {
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	return opts
}
