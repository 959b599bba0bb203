package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
	"github.com/joseph-ayodele/proposal-extractor/internal/ingest"
	"github.com/joseph-ayodele/proposal-extractor/internal/repository"
)

type stubFetcher struct {
	docs map[string][]byte
}

func (s *stubFetcher) Fetch(_ context.Context, uri string) (*ingest.Document, error) {
	b, ok := s.docs[uri]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &ingest.Document{Source: uri, Name: uri, Data: b}, nil
}

type stubExtractor struct {
	mu       sync.Mutex
	err      error
	confused bool
	runIDs   []string
}

func (s *stubExtractor) Process(ctx context.Context, doc []byte, _ int) (*pipeline.Outcome, error) {
	s.mu.Lock()
	s.runIDs = append(s.runIDs, common.RequestIDFromContext(ctx))
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	res := &entity.ExtractionResult{
		ProjectName: "12 Harbor Way",
		ClientName:  string(doc),
		TotalPrice:  3000,
		Confidence:  85,
		Services:    []entity.Service{{Name: "Scan", Quantity: 1, Price: 3000}},
	}
	out := &pipeline.Outcome{Pages: 1, Result: res}
	out.Reconciled.IsDataConfused = s.confused
	return out, nil
}

func newJournal(t *testing.T) repository.ExtractionRunRepository {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.Config{DSN: ":memory:"}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	return repository.NewExtractionRunRepository(db, quietLogger())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessSourceJournalsSuccess(t *testing.T) {
	ctx := context.Background()
	runs := newJournal(t)
	ex := &stubExtractor{confused: true}
	p := NewProcessor(quietLogger(), &stubFetcher{docs: map[string][]byte{"a.pdf": []byte("Reyes")}}, ex, runs, 4)

	rep, err := p.ProcessSource(ctx, "a.pdf")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, rep.RunID)
	assert.Equal(t, "Reyes", rep.Outcome.Result.ClientName)
	assert.Equal(t, []string{rep.RunID.String()}, ex.runIDs, "journal id becomes the run id")

	got, err := runs.Get(ctx, rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusSucceeded, got.Status)
	assert.True(t, got.IsDataConfused)
	require.NotNil(t, got.TotalPrice)
	assert.InDelta(t, 3000, *got.TotalPrice, 1e-9)
}

func TestProcessSourceFetchFailure(t *testing.T) {
	ctx := context.Background()
	runs := newJournal(t)
	p := NewProcessor(quietLogger(), &stubFetcher{}, &stubExtractor{}, runs, 0)

	rep, err := p.ProcessSource(ctx, "missing.pdf")
	require.ErrorIs(t, err, common.ErrNotFound)

	got, err := runs.Get(ctx, rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
}

func TestProcessDocumentPipelineFailure(t *testing.T) {
	ctx := context.Background()
	runs := newJournal(t)
	p := NewProcessor(quietLogger(), &stubFetcher{}, &stubExtractor{err: common.ErrEmptyExtractionResponse}, runs, 0)

	rep, err := p.ProcessDocument(ctx, &ingest.Document{Source: "upload:x.pdf", Data: []byte("x")})
	require.ErrorIs(t, err, common.ErrEmptyExtractionResponse)
	assert.Nil(t, rep.Outcome)

	got, err := runs.Get(ctx, rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusFailed, got.Status)
	assert.Contains(t, *got.ErrorMessage, "empty extraction response")
}

func TestProcessWithoutJournal(t *testing.T) {
	ex := &stubExtractor{}
	p := NewProcessor(nil, &stubFetcher{docs: map[string][]byte{"a.pdf": []byte("c")}}, ex, nil, 0)

	id := p.Enqueued(context.Background(), "a.pdf")
	assert.Equal(t, uuid.Nil, id)

	rep, err := p.ProcessQueued(context.Background(), id, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, rep.RunID)
	assert.NotNil(t, rep.Outcome)

	_, err = p.ProcessDocument(context.Background(), nil)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestProcessQueuedMarksRunning(t *testing.T) {
	ctx := context.Background()
	runs := newJournal(t)
	p := NewProcessor(quietLogger(), &stubFetcher{docs: map[string][]byte{"b.pdf": []byte("c")}}, &stubExtractor{}, runs, 0)

	id := p.Enqueued(ctx, "b.pdf")
	require.NotEqual(t, uuid.Nil, id)
	got, err := runs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusQueued, got.Status)

	rep, err := p.ProcessQueued(ctx, id, "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, id, rep.RunID)

	got, err = runs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusSucceeded, got.Status)
}

func TestAbandonFailsQueuedRun(t *testing.T) {
	ctx := context.Background()
	runs := newJournal(t)
	p := NewProcessor(quietLogger(), &stubFetcher{}, &stubExtractor{}, runs, 0)

	id := p.Enqueued(ctx, "c.pdf")
	require.NotEqual(t, uuid.Nil, id)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	p.Abandon(cancelled, id, cancelled.Err())

	got, err := runs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "context canceled")
	assert.NotNil(t, got.FinishedAt)
}
