package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/ecoplan-lk/siteopt-cli/internal/config"
	"github.com/ecoplan-lk/siteopt-cli/internal/costmodel"
	"github.com/ecoplan-lk/siteopt-cli/internal/geometry"
	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

func testServeEnv(t *testing.T) *serveEnv {
	t.Helper()

	// Handlers read solver defaults from the package config.
	if cfg == nil {
		c, err := config.Load()
		require.NoError(t, err)
		cfg = c
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
	})
	require.NoError(t, err)
	region, err := geometry.NewRegion(poly, nil)
	require.NoError(t, err)

	return &serveEnv{
		region: region,
		demand: []model.DemandPoint{
			{Name: "a", Location: model.Point{Lng: 3, Lat: 3}, Weight: 1},
			{Name: "b", Location: model.Point{Lng: 7, Lat: 7}, Weight: 1},
		},
		cost: costmodel.Model{Metric: costmodel.MetricEuclidean},
	}
}

func TestHandleFeasible(t *testing.T) {
	env := testServeEnv(t)

	rec := httptest.NewRecorder()
	env.handleFeasible(rec, httptest.NewRequest(http.MethodGet, "/v1/feasible?lng=5&lat=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["feasible"])

	rec = httptest.NewRecorder()
	env.handleFeasible(rec, httptest.NewRequest(http.MethodGet, "/v1/feasible?lng=50&lat=50", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["feasible"])
}

func TestHandleFeasible_MissingParams(t *testing.T) {
	env := testServeEnv(t)

	rec := httptest.NewRecorder()
	env.handleFeasible(rec, httptest.NewRequest(http.MethodGet, "/v1/feasible?lng=5", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCost(t *testing.T) {
	env := testServeEnv(t)

	rec := httptest.NewRecorder()
	env.handleCost(rec, httptest.NewRequest(http.MethodGet, "/v1/cost?lng=5&lat=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// Both demand points are 2*sqrt(2) away from (5,5).
	assert.InDelta(t, 5.6569, body["cost"].(float64), 1e-3)
}

func TestHandleOptimize(t *testing.T) {
	env := testServeEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/optimize",
		strings.NewReader(`{"bounds":{"min_lng":0,"min_lat":0,"max_lng":10,"max_lat":10}}`))
	rec := httptest.NewRecorder()
	env.handleOptimize(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result model.OptimizationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Feasible)
	// The optimum for two equal weights lies on the segment between them.
	assert.InDelta(t, result.Location.Lng, result.Location.Lat, 1e-2)
}

func TestHandleOptimize_BadRequest(t *testing.T) {
	env := testServeEnv(t)

	rec := httptest.NewRecorder()
	env.handleOptimize(rec, httptest.NewRequest(http.MethodPost, "/v1/optimize", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bounds disjoint from the boundary are a caller error.
	rec = httptest.NewRecorder()
	env.handleOptimize(rec, httptest.NewRequest(http.MethodPost, "/v1/optimize",
		strings.NewReader(`{"bounds":{"min_lng":100,"min_lat":100,"max_lng":110,"max_lat":110}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimited(t *testing.T) {
	handler := rateLimited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), 2)

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes[rec.Code]++
	}
	assert.Equal(t, 2, codes[http.StatusOK], "burst of two allowed")
	assert.Equal(t, 3, codes[http.StatusTooManyRequests])
}

func TestRateLimited_FractionalRate(t *testing.T) {
	handler := rateLimited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), 0.5)

	// A sub-1 rate still admits an initial request.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDrainAndShutdown_WaitsForInflight(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	entered := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})}
	go srv.Serve(ln) //nolint:errcheck

	type outcome struct {
		code int
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			done <- outcome{err: err}
			return
		}
		resp.Body.Close()
		done <- outcome{code: resp.StatusCode}
	}()

	// Shut down while the request is in flight; the drain must let it
	// finish instead of aborting on the already-cancelled signal context.
	<-entered
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	drainAndShutdown(ctx, srv)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, http.StatusOK, got.code)
}

func TestRateLimited_Disabled(t *testing.T) {
	handler := rateLimited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), 0)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
