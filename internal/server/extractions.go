package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
	"github.com/joseph-ayodele/proposal-extractor/internal/ingest"
)

type handlers struct {
	deps      Deps
	maxUpload int64
	logger    *slog.Logger
}

type sourceRequest struct {
	Source string `json:"source"`
}

type extractionResponse struct {
	RunID  string                   `json:"runId,omitempty"`
	Source string                   `json:"source"`
	Pages  int                      `json:"pages"`
	Result *entity.ExtractionResult `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// createExtraction accepts a multipart "file" field, a JSON body naming a
// source URI, or the raw document as the request body.
func (h *handlers) createExtraction(w http.ResponseWriter, r *http.Request) {
	maxUpload := h.maxUpload
	if maxUpload <= 0 {
		maxUpload = constants.MaxDocumentBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		rep *core.Report
		err error
	)
	switch mediaType {
	case "application/json":
		var req sourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Source) == "" {
			h.writeError(w, r, fmt.Errorf("%w: body must be {\"source\": \"...\"}", common.ErrInvalidInput))
			return
		}
		rep, err = h.deps.Processor.ProcessSource(r.Context(), req.Source)
	case "multipart/form-data":
		doc, derr := readMultipart(r, maxUpload)
		if derr != nil {
			h.writeError(w, r, derr)
			return
		}
		rep, err = h.deps.Processor.ProcessDocument(r.Context(), doc)
	default:
		b, rerr := io.ReadAll(r.Body)
		if rerr != nil {
			h.writeError(w, r, bodyError(rerr))
			return
		}
		name := r.URL.Query().Get("filename")
		if name == "" {
			name = "upload"
		}
		rep, err = h.deps.Processor.ProcessDocument(r.Context(), &ingest.Document{Source: "upload:" + name, Name: name, Data: b})
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := extractionResponse{Source: rep.Source, Result: rep.Outcome.Result, Pages: rep.Outcome.Pages}
	if rep.RunID != uuid.Nil {
		resp.RunID = rep.RunID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func readMultipart(r *http.Request, maxUpload int64) (*ingest.Document, error) {
	if err := r.ParseMultipartForm(min(maxUpload, 32<<20)); err != nil {
		return nil, bodyError(err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: multipart field \"file\" is required", common.ErrInvalidInput)
	}
	defer func() { _ = file.Close() }()

	b, err := io.ReadAll(file)
	if err != nil {
		return nil, bodyError(err)
	}
	name := filepath.Base(header.Filename)
	return &ingest.Document{Source: "upload:" + name, Name: name, Data: b}, nil
}

func bodyError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return fmt.Errorf("%w: document exceeds %d bytes", common.ErrInvalidInput, tooBig.Limit)
	}
	return fmt.Errorf("%w: read body: %v", common.ErrInvalidInput, err)
}

func (h *handlers) getExtraction(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		h.writeError(w, r, fmt.Errorf("extraction journal is not configured: %w", common.ErrNotFound))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: id must be a UUID", common.ErrInvalidInput))
		return
	}
	run, err := h.deps.Runs.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *handlers) listExtractions(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		h.writeError(w, r, fmt.Errorf("extraction journal is not configured: %w", common.ErrNotFound))
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", common.ErrInvalidInput))
			return
		}
		limit = n
	}
	runs, err := h.deps.Runs.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*entity.ExtractionRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *handlers) exportXLSX(w http.ResponseWriter, r *http.Request) {
	if h.deps.Exporter == nil {
		h.writeError(w, r, fmt.Errorf("extraction journal is not configured: %w", common.ErrNotFound))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	b, err := h.deps.Exporter.ExportRunsXLSX(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="proposals-%s.xlsx"`, time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.deps.DB != nil {
		if err := h.deps.DB.HealthCheck(r.Context(), 3*time.Second); err != nil {
			h.logger.Error("database ping failed", "error", err)
			status["status"] = "degraded"
			status["database"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := common.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("http.error", "path", r.URL.Path, "status", code, "error", err)
	} else {
		h.logger.Warn("http.error", "path", r.URL.Path, "status", code, "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
