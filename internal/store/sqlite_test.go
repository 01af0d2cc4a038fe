package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRunRequest() model.RunRequest {
	return model.RunRequest{
		DemandCount:    14,
		ExclusionCount: 3,
		BoundarySource: "lka.shp",
		Metric:         "euclidean",
		Penalty:        1e9,
		MaxIterations:  200,
		StartCount:     12,
		Bounds:         model.BBox{MinLng: 79.7, MinLat: 5.9, MaxLng: 81.9, MaxLat: 9.8},
	}
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testRunRequest())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusSolving, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, testRunRequest(), got.Request)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.Error)
}

func TestSQLiteStore_CompleteRun(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testRunRequest())
	require.NoError(t, err)

	result := &model.OptimizationResult{
		Location:   model.Point{Lng: 80.42, Lat: 7.11},
		Cost:       123.4,
		Feasible:   true,
		Iterations: 37,
		Converged:  true,
		StartIndex: 2,
	}
	require.NoError(t, s.CompleteRun(ctx, run.ID, result))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, result, got.Result)
}

func TestSQLiteStore_FailRun(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testRunRequest())
	require.NoError(t, err)

	require.NoError(t, s.FailRun(ctx, run.ID, eris.New("all starts failed")))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "all starts failed")
}

func TestSQLiteStore_UpdateMissingRun(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	err := s.CompleteRun(ctx, "no-such-id", &model.OptimizationResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = s.FailRun(ctx, "no-such-id", eris.New("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = s.GetRun(ctx, "no-such-id")
	require.Error(t, err)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, testRunRequest())
	require.NoError(t, err)
	second, err := s.CreateRun(ctx, testRunRequest())
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, second.ID, &model.OptimizationResult{Feasible: true}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, second.ID, complete[0].ID)

	solving, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusSolving})
	require.NoError(t, err)
	require.Len(t, solving, 1)
	assert.Equal(t, first.ID, solving[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
