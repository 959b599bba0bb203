package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
)

// RunOutcome is what a successful run records.
type RunOutcome struct {
	Result         *entity.ExtractionResult
	IsDataConfused bool
	Degraded       bool
}

type ExtractionRunRepository interface {
	Start(ctx context.Context, source string, status constants.RunStatus) (*entity.ExtractionRun, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	FinishSuccess(ctx context.Context, id uuid.UUID, out RunOutcome) error
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRun, error)
	List(ctx context.Context, limit int) ([]*entity.ExtractionRun, error)
}

type extractionRunRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractionRunRepository(db *DB, log *slog.Logger) ExtractionRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractionRunRepo{db: db, log: log}
}

const runColumns = `id, source, status, confidence, is_data_confused, degraded, total_price, result_json, error_message, started_at, finished_at`

func (r *extractionRunRepo) Start(ctx context.Context, source string, status constants.RunStatus) (*entity.ExtractionRun, error) {
	run := &entity.ExtractionRun{
		ID:        uuid.New(),
		Source:    source,
		Status:    status,
		StartedAt: time.Now().UTC(),
	}
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extraction_run (id, source, status, started_at) VALUES (?, ?, ?, ?)`),
		run.ID.String(), run.Source, string(run.Status), run.StartedAt,
	)
	if err != nil {
		r.log.Error("extraction_run start failed", "source", source, "err", err)
		return nil, common.NewAppError("DB_ERROR", "insert extraction_run", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("extraction_run started", "run_id", run.ID, "source", source, "status", status)
	return run, nil
}

func (r *extractionRunRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, `UPDATE extraction_run SET status = ? WHERE id = ?`,
		string(constants.RunStatusRunning), id.String())
}

func (r *extractionRunRepo) FinishSuccess(ctx context.Context, id uuid.UUID, out RunOutcome) error {
	var (
		resultJSON sql.NullString
		confidence sql.NullInt64
		total      sql.NullFloat64
	)
	if out.Result != nil {
		b, err := json.Marshal(out.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
		confidence = sql.NullInt64{Int64: int64(out.Result.Confidence), Valid: true}
		total = sql.NullFloat64{Float64: out.Result.TotalPrice, Valid: true}
	}
	err := r.update(ctx, id,
		`UPDATE extraction_run SET status = ?, confidence = ?, is_data_confused = ?, degraded = ?, total_price = ?, result_json = ?, finished_at = ? WHERE id = ?`,
		string(constants.RunStatusSucceeded), confidence, out.IsDataConfused, out.Degraded, total, resultJSON, time.Now().UTC(), id.String(),
	)
	if err == nil {
		r.log.Info("extraction_run succeeded", "run_id", id, "confidence", confidence.Int64)
	}
	return err
}

func (r *extractionRunRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	err := r.update(ctx, id,
		`UPDATE extraction_run SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(constants.RunStatusFailed), message, time.Now().UTC(), id.String(),
	)
	if err == nil {
		r.log.Info("extraction_run failed", "run_id", id, "error", message)
	}
	return err
}

func (r *extractionRunRepo) update(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		r.log.Error("extraction_run update failed", "run_id", id, "err", err)
		return common.NewAppError("DB_ERROR", "update extraction_run", errors.Join(common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("extraction_run %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *extractionRunRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRun, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM extraction_run WHERE id = ?`), id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extraction_run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "get extraction_run", errors.Join(common.ErrDatabase, err))
	}
	return run, nil
}

// List returns the most recent runs first. limit <= 0 means 100.
func (r *extractionRunRepo) List(ctx context.Context, limit int) ([]*entity.ExtractionRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM extraction_run ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list extraction_run", errors.Join(common.ErrDatabase, err))
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.ExtractionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan extraction_run", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.ExtractionRun, error) {
	var (
		id, source, status   string
		confidence           sql.NullInt64
		confused, degraded   bool
		total                sql.NullFloat64
		resultJSON, errMsg   sql.NullString
		startedRaw, finished any
	)
	if err := s.Scan(&id, &source, &status, &confidence, &confused, &degraded, &total, &resultJSON, &errMsg, &startedRaw, &finished); err != nil {
		return nil, err
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	run := &entity.ExtractionRun{
		ID:             uid,
		Source:         source,
		Status:         constants.RunStatus(status),
		IsDataConfused: confused,
		Degraded:       degraded,
	}
	if confidence.Valid {
		c := int(confidence.Int64)
		run.Confidence = &c
	}
	if total.Valid {
		run.TotalPrice = &total.Float64
	}
	if resultJSON.Valid {
		run.ResultJSON = json.RawMessage(resultJSON.String)
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	if run.StartedAt, err = parseTime(startedRaw); err != nil {
		return nil, err
	}
	if finished != nil {
		t, err := parseTime(finished)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}
	return run, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTime accepts driver time values and SQLite's text encodings.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable time %q", s)
}
