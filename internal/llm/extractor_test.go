package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core/raster"
)

type stubCompleter struct {
	reply string
	err   error
	got   []VisionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req VisionRequest) (string, error) {
	s.got = append(s.got, req)
	return s.reply, s.err
}

func testPages(n int) []raster.PageImage {
	pages := make([]raster.PageImage, n)
	for i := range pages {
		pages[i] = raster.PageImage{Page: i + 1, MIMEType: "image/png", Data: []byte{byte(i)}}
	}
	return pages
}

func TestExtractNoPages(t *testing.T) {
	stub := &stubCompleter{reply: "{}"}
	_, err := NewExtractor(stub, ExtractorConfig{}, quietLogger()).Extract(context.Background(), nil)
	require.ErrorIs(t, err, common.ErrEmptyDocument)
	assert.Empty(t, stub.got, "completer must not be called")
}

func TestExtractEmptyResponse(t *testing.T) {
	for _, reply := range []string{"", "   \n\t"} {
		stub := &stubCompleter{reply: reply}
		_, err := NewExtractor(stub, ExtractorConfig{}, quietLogger()).Extract(context.Background(), testPages(1))
		require.ErrorIs(t, err, common.ErrEmptyExtractionResponse)
	}
}

func TestExtractCompleterError(t *testing.T) {
	boom := errors.New("rate limited")
	stub := &stubCompleter{err: boom}
	_, err := NewExtractor(stub, ExtractorConfig{}, quietLogger()).Extract(context.Background(), testPages(1))
	require.ErrorIs(t, err, boom)
}

func TestExtractBuildsRequest(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n{}\n```"}
	text, err := NewExtractor(stub, ExtractorConfig{}, quietLogger()).Extract(context.Background(), testPages(3))
	require.NoError(t, err)
	assert.Equal(t, "```json\n{}\n```", text, "extractor returns the raw reply")

	require.Len(t, stub.got, 1)
	req := stub.got[0]
	assert.Equal(t, 4096, req.MaxTokens)
	assert.InDelta(t, 0.1, req.Temperature, 1e-6)
	assert.Contains(t, req.System, "pricing/estimate page")
	assert.Contains(t, req.System, `"grandTotal"`)
	assert.Contains(t, req.User, "3 page images")

	require.Len(t, req.Images, 3)
	for i, img := range req.Images {
		assert.Equal(t, "high", img.Detail)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.Equal(t, testPages(3)[i].DataURI(), img.DataURI)
	}
}
