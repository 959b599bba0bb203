package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core"
	"github.com/joseph-ayodele/proposal-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
	"github.com/joseph-ayodele/proposal-extractor/internal/export"
	"github.com/joseph-ayodele/proposal-extractor/internal/ingest"
	"github.com/joseph-ayodele/proposal-extractor/internal/repository"
)

type stubProcessor struct {
	err     error
	gotDoc  *ingest.Document
	gotURI  string
	gotReqs []string
}

func (s *stubProcessor) report(ctx context.Context, source string) (*core.Report, error) {
	s.gotReqs = append(s.gotReqs, common.RequestIDFromContext(ctx))
	if s.err != nil {
		return nil, s.err
	}
	return &core.Report{
		RunID:  uuid.MustParse("6f1c1b7e-8a55-4a3f-9a3c-1d6d7c0f3b21"),
		Source: source,
		Outcome: &pipeline.Outcome{Pages: 2, Result: &entity.ExtractionResult{
			ProjectName: "12 Harbor Way",
			TotalPrice:  3000,
			Confidence:  85,
		}},
	}, nil
}

func (s *stubProcessor) ProcessDocument(ctx context.Context, doc *ingest.Document) (*core.Report, error) {
	s.gotDoc = doc
	return s.report(ctx, doc.Source)
}

func (s *stubProcessor) ProcessSource(ctx context.Context, uri string) (*core.Report, error) {
	s.gotURI = uri
	return s.report(ctx, uri)
}

type stubPinger struct{ err error }

func (p stubPinger) HealthCheck(context.Context, time.Duration) error { return p.err }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() common.ServerConfig {
	return common.ServerConfig{RequestTimeout: 5 * time.Second, MaxUploadBytes: 1 << 10, AllowedOrigins: []string{"*"}}
}

func TestCreateExtractionMultipart(t *testing.T) {
	proc := &stubProcessor{}
	h := NewRouter(testConfig(), Deps{Processor: proc}, quietLogger())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "harbor.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.7"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp extractionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "upload:harbor.pdf", resp.Source)
	assert.Equal(t, "6f1c1b7e-8a55-4a3f-9a3c-1d6d7c0f3b21", resp.RunID)
	assert.Equal(t, 2, resp.Pages)
	assert.Equal(t, "12 Harbor Way", resp.Result.ProjectName)
	assert.Equal(t, []byte("%PDF-1.7"), proc.gotDoc.Data)

	require.Len(t, proc.gotReqs, 1)
	assert.NotEmpty(t, proc.gotReqs[0], "chi request id reaches the pipeline")
	assert.Equal(t, proc.gotReqs[0], rec.Header().Get("X-Request-Id"))
}

func TestCreateExtractionRawAndSource(t *testing.T) {
	proc := &stubProcessor{}
	h := NewRouter(testConfig(), Deps{Processor: proc}, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/extractions?filename=a.png", bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}))
	req.Header.Set("Content-Type", "application/octet-stream")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a.png", proc.gotDoc.Name)

	req = httptest.NewRequest(http.MethodPost, "/v1/extractions", bytes.NewBufferString(`{"source":"s3://bucket/a.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s3://bucket/a.pdf", proc.gotURI)

	req = httptest.NewRequest(http.MethodPost, "/v1/extractions", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateExtractionTooLarge(t *testing.T) {
	h := NewRouter(testConfig(), Deps{Processor: &stubProcessor{}}, quietLogger())
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", bytes.NewReader(make([]byte, 2<<10)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateExtractionErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{common.ErrEmptyDocument, http.StatusUnprocessableEntity},
		{&common.MalformedResponseError{Raw: "nope", Err: errors.New("bad json")}, http.StatusUnprocessableEntity},
		{common.ErrEmptyExtractionResponse, http.StatusBadGateway},
		{errors.New("pdftoppm exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewRouter(testConfig(), Deps{Processor: &stubProcessor{err: tc.err}}, quietLogger())
		req := httptest.NewRequest(http.MethodPost, "/v1/extractions", bytes.NewReader([]byte("x")))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
	}
}

func TestJournalRoutes(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	runs := repository.NewExtractionRunRepository(db, quietLogger())

	run, err := runs.Start(ctx, "harbor.pdf", constants.RunStatusRunning)
	require.NoError(t, err)
	require.NoError(t, runs.FinishSuccess(ctx, run.ID, repository.RunOutcome{
		Result: &entity.ExtractionResult{ProjectName: "Harbor", TotalPrice: 10, Confidence: 85},
	}))

	h := NewRouter(testConfig(), Deps{
		Processor: &stubProcessor{},
		Runs:      runs,
		Exporter:  export.NewService(runs, quietLogger()),
		DB:        db,
	}, quietLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+run.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got entity.ExtractionRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, constants.RunStatusSucceeded, got.Status)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/extractions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/extractions?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []entity.ExtractionRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Runs, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/exports/proposals.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

func TestRoutesWithoutJournal(t *testing.T) {
	h := NewRouter(testConfig(), Deps{Processor: &stubProcessor{}}, quietLogger())
	for _, path := range []string{"/v1/extractions/" + uuid.NewString(), "/v1/extractions", "/v1/exports/proposals.xlsx"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestHealthDegraded(t *testing.T) {
	h := NewRouter(testConfig(), Deps{Processor: &stubProcessor{}, DB: stubPinger{err: errors.New("down")}}, quietLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
