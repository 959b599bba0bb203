package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Migrate(context.Background()), "migrate is idempotent")
	return db
}

func TestExtractionRunLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewExtractionRunRepository(db, nil)

	run, err := repo.Start(ctx, "proposals/harbor.pdf", constants.RunStatusQueued)
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunning(ctx, run.ID))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.Nil(t, got.Confidence)

	result := &entity.ExtractionResult{
		ProjectName: "12 Harbor Way",
		ClientName:  "Reyes Holdings",
		TotalPrice:  3000,
		Confidence:  65,
		Services:    []entity.Service{{Name: "Scan", Quantity: 50, Price: 1000}},
	}
	require.NoError(t, repo.FinishSuccess(ctx, run.ID, RunOutcome{Result: result, IsDataConfused: true}))

	got, err = repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusSucceeded, got.Status)
	require.NotNil(t, got.Confidence)
	assert.Equal(t, 65, *got.Confidence)
	assert.True(t, got.IsDataConfused)
	assert.False(t, got.Degraded)
	require.NotNil(t, got.TotalPrice)
	assert.InDelta(t, 3000.0, *got.TotalPrice, 1e-9)
	require.NotNil(t, got.FinishedAt)
	assert.False(t, got.FinishedAt.Before(got.StartedAt))

	decoded, err := got.Result()
	require.NoError(t, err)
	assert.Equal(t, "Reyes Holdings", decoded.ClientName)
	require.Len(t, decoded.Services, 1)
}

func TestExtractionRunFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractionRunRepository(openTestDB(t), nil)

	run, err := repo.Start(ctx, "bad.pdf", constants.RunStatusRunning)
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, run.ID, "empty extraction response"))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "empty extraction response", *got.ErrorMessage)
	res, err := got.Result()
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestExtractionRunNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractionRunRepository(openTestDB(t), nil)

	_, err := repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, repo.FinishFailure(ctx, uuid.New(), "x"), common.ErrNotFound)
}

func TestExtractionRunList(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractionRunRepository(openTestDB(t), nil)

	for _, src := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		_, err := repo.Start(ctx, src, constants.RunStatusQueued)
		require.NoError(t, err)
	}
	runs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestHealthCheck(t *testing.T) {
	assert.NoError(t, openTestDB(t).HealthCheck(context.Background(), 0))
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, DialectPostgres, DialectFor("postgres://u:p@localhost:5432/db"))
	assert.Equal(t, DialectPostgres, DialectFor("host=localhost user=u dbname=db"))
	assert.Equal(t, DialectSQLite, DialectFor("file:journal.db"))
	assert.Equal(t, DialectSQLite, DialectFor(":memory:"))
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, "UPDATE t SET a = $1 WHERE id = $2", pg.rebind("UPDATE t SET a = ? WHERE id = ?"))
	lite := &DB{Dialect: DialectSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}
