package common

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 8, cfg.Raster.MaxPages)
	assert.Equal(t, 150, cfg.Raster.DPI)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Database.DSN)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PROPOSAL_LLM_PROVIDER", "Anthropic")
	t.Setenv("PROPOSAL_LLM_API_KEY", "key")
	t.Setenv("PROPOSAL_RASTER_MAX_PAGES", "3")
	t.Setenv("PROPOSAL_BATCH_PROCESS_TIMEOUT", "45s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Raster.MaxPages)
	assert.Equal(t, 45*time.Second, cfg.Batch.ProcessTimeout)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: gemini
  api_key: g-key
raster:
  dpi: 200
database:
  dsn: ":memory:"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 200, cfg.Raster.DPI)
	assert.Equal(t, ":memory:", cfg.Database.DSN)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{LLM: LLMConfig{Provider: "openai", APIKey: "k"}, Batch: BatchConfig{Workers: 1}}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.LLM.Provider = "llama"
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	c = base()
	c.LLM.APIKey = ""
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	c = base()
	c.Raster.MaxPages = -1
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	c = base()
	c.Batch.Workers = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(WrapError(ErrInvalidInput, "fetch")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(WrapError(ErrEmptyDocument, "extract")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(&MalformedResponseError{Raw: "x", Err: errors.New("eof")}))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrEmptyExtractionResponse))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestMalformedResponseErrorUnwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := WrapError(&MalformedResponseError{Raw: "{", Err: cause}, "validate")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.ErrorIs(t, err, cause)

	var mre *MalformedResponseError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, "{", mre.Raw)
}
