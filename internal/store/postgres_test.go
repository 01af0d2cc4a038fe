package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "solving", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), testRunRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusSolving, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE runs SET result`).
		WithArgs(pgxmock.AnyArg(), "complete", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", &model.OptimizationResult{Feasible: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRunNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE runs SET result`).
		WithArgs(pgxmock.AnyArg(), "complete", pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "ghost", &model.OptimizationResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresStore_FailRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE runs SET error`).
		WithArgs("numerical failure", "failed", pgxmock.AnyArg(), "run-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FailRun(context.Background(), "run-2", eris.New("numerical failure"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgres(t)

	req := testRunRequest()
	reqJSON, err := json.Marshal(req)
	require.NoError(t, err)
	resultJSON := `{"location":{"lng":80.4,"lat":7.1},"cost":42,"feasible":true,"iterations":10,"converged":true,"start_index":0}`
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, request, status, result, error, created_at, updated_at FROM runs WHERE id`).
		WithArgs("run-3").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "request", "status", "result", "error", "created_at", "updated_at",
		}).AddRow("run-3", string(reqJSON), "complete", &resultJSON, (*string)(nil), now, now))

	run, err := s.GetRun(context.Background(), "run-3")
	require.NoError(t, err)
	assert.Equal(t, "run-3", run.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, req, run.Request)
	require.NotNil(t, run.Result)
	assert.InDelta(t, 42, run.Result.Cost, 1e-12)
	assert.Empty(t, run.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRunNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT id, request, status, result, error, created_at, updated_at FROM runs WHERE id`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "request", "status", "result", "error", "created_at", "updated_at",
		}))

	_, err := s.GetRun(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresStore_ListRuns(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgres(t)

	reqJSON, err := json.Marshal(testRunRequest())
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, request, status, result, error, created_at, updated_at FROM runs WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("failed", 100).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "request", "status", "result", "error", "created_at", "updated_at",
		}).AddRow("run-4", string(reqJSON), "failed", (*string)(nil), ptr("boom"), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Equal(t, "boom", runs[0].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	s, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func ptr(s string) *string { return &s }
