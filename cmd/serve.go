package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ecoplan-lk/siteopt-cli/internal/costmodel"
	"github.com/ecoplan-lk/siteopt-cli/internal/geoload"
	"github.com/ecoplan-lk/siteopt-cli/internal/geometry"
	"github.com/ecoplan-lk/siteopt-cli/internal/model"
	"github.com/ecoplan-lk/siteopt-cli/internal/solver"
)

var (
	serveGeo    geoInputs
	serveDemand string
	servePort   int
)

// serveEnv holds the immutable inputs shared by all requests. A new
// snapshot would require a restart; requests never mutate it.
type serveEnv struct {
	region *geometry.Region
	demand []model.DemandPoint
	cost   costmodel.Model
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the siting diagnostics HTTP server",
	Long: `Serves feasibility, cost and optimization endpoints over the loaded
boundary, exclusion and demand snapshot. Intended for map front-ends that
render feasibility heat-maps and trigger optimizations interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		region, err := serveGeo.buildRegion()
		if err != nil {
			return err
		}

		var demand []model.DemandPoint
		if serveDemand != "" {
			demand, err = geoload.DemandFromFile(serveDemand)
			if err != nil {
				return err
			}
		}

		costModel, err := costModelFromConfig("")
		if err != nil {
			return err
		}

		env := &serveEnv{region: region, demand: demand, cost: costModel}

		mux := http.NewServeMux()
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		mux.HandleFunc("GET /v1/feasible", env.handleFeasible)
		mux.HandleFunc("GET /v1/cost", env.handleCost)
		mux.HandleFunc("POST /v1/optimize", env.handleOptimize)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: rateLimited(mux, cfg.Server.RateLimit),
		}

		go drainAndShutdown(ctx, srv)

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Int("demand_points", len(demand)),
			zap.Int("exclusion_zones", region.ZoneCount()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

const shutdownGrace = 10 * time.Second

// drainAndShutdown waits for the signal context, then drains in-flight
// requests on a fresh context. The signal context is already cancelled at
// that point and would abort the drain immediately.
func drainAndShutdown(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	zap.L().Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	srv.Shutdown(shutdownCtx) //nolint:errcheck
}

// rateLimited rejects requests beyond rps with 429.
func rateLimited(next http.Handler, rps float64) http.Handler {
	if rps <= 0 {
		return next
	}
	// Burst at least one request so fractional rates still admit traffic.
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (e *serveEnv) handleFeasible(w http.ResponseWriter, r *http.Request) {
	p, ok := queryPoint(w, r)
	if !ok {
		return
	}
	violations := e.region.Violations(p)
	writeJSON(w, http.StatusOK, map[string]any{
		"lng":        p.Lng,
		"lat":        p.Lat,
		"feasible":   len(violations) == 0,
		"violations": violations,
	})
}

func (e *serveEnv) handleCost(w http.ResponseWriter, r *http.Request) {
	p, ok := queryPoint(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lng":    p.Lng,
		"lat":    p.Lat,
		"cost":   e.cost.Total(p, e.demand),
		"metric": e.cost.Metric,
	})
}

type optimizeRequest struct {
	Demand        []model.DemandPoint `json:"demand,omitempty"`
	Bounds        *model.BBox         `json:"bounds,omitempty"`
	Starts        []model.Point       `json:"starts,omitempty"`
	Penalty       float64             `json:"penalty,omitempty"`
	MaxIterations int                 `json:"max_iterations,omitempty"`
	StartCount    int                 `json:"start_count,omitempty"`
	Seed          uint64              `json:"seed,omitempty"`
}

func (e *serveEnv) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	demand := e.demand
	if len(body.Demand) > 0 {
		demand = body.Demand
	}

	var bounds model.BBox
	if body.Bounds != nil {
		bounds = *body.Bounds
	} else if ext, ok := model.DemandExtent(demand); ok && !ext.Degenerate() {
		bounds = ext
	} else {
		bounds = e.region.Extent()
	}

	params := solverParamsFromConfig()
	if body.Penalty > 0 {
		params.Penalty = body.Penalty
	}
	if body.MaxIterations > 0 {
		params.MaxIterations = body.MaxIterations
	}

	starts := body.Starts
	if len(starts) == 0 {
		n := body.StartCount
		if n <= 0 {
			n = cfg.Solver.Starts
		}
		seed := body.Seed
		if seed == 0 {
			seed = cfg.Solver.Seed
		}
		starts = solver.DefaultStarts(demand, bounds, n, seed)
	}

	result, err := solver.Optimize(r.Context(), solver.Request{
		Demand: demand,
		Region: e.region,
		Cost:   e.cost,
		Starts: starts,
		Bounds: bounds,
		Params: params,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if eris.Is(err, solver.ErrInvalidConfiguration) {
			status = http.StatusBadRequest
		}
		zap.L().Error("optimize request failed", zap.Error(err))
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func queryPoint(w http.ResponseWriter, r *http.Request) (model.Point, bool) {
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if errLng != nil || errLat != nil {
		http.Error(w, `{"error":"lng and lat query parameters are required"}`, http.StatusBadRequest)
		return model.Point{}, false
	}
	return model.Point{Lng: lng, Lat: lat}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveGeo.register(serveCmd)
	serveCmd.Flags().StringVar(&serveDemand, "demand", "", "demand points file loaded at startup (optional)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
