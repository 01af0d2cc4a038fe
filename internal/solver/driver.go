// Package solver turns weighted demand points and exclusion geometries into
// a single feasible optimal coordinate, using a penalized objective and a
// multi-start quasi-Newton local minimizer.
package solver

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/ecoplan-lk/siteopt-cli/internal/costmodel"
	"github.com/ecoplan-lk/siteopt-cli/internal/geometry"
	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

// Params holds the solver hyperparameters.
type Params struct {
	// Penalty is added to the objective at infeasible candidates. It must
	// dominate any realistic transport cost magnitude.
	Penalty float64 `json:"penalty"`
	// MaxIterations caps major iterations per start.
	MaxIterations int `json:"max_iterations"`
	// Tolerance is the absolute function-convergence tolerance, also used
	// when comparing per-start results for ties.
	Tolerance float64 `json:"tolerance"`
	// Workers bounds the number of concurrently running starts.
	// Zero means GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultParams returns the production solver settings.
func DefaultParams() Params {
	return Params{
		Penalty:       1e9,
		MaxIterations: 200,
		Tolerance:     1e-9,
	}
}

// Request is a complete, immutable optimization request. All referenced
// data is snapshotted by the caller; the solver never mutates it.
type Request struct {
	Demand []model.DemandPoint
	Region *geometry.Region
	Cost   costmodel.Model
	Starts []model.Point
	Bounds model.BBox
	Params Params
}

// startResult holds one start's local minimization outcome.
type startResult struct {
	ok        bool
	loc       model.Point
	objective float64
	feasible  bool
	iters     int
	converged bool
}

// Optimize runs the bounded multi-start minimization and returns the best
// result. Infeasibility of the best candidate is reported through
// OptimizationResult.Feasible, never as an error; errors are reserved for
// invalid configuration and whole-request numerical failure.
func Optimize(ctx context.Context, req Request) (*model.OptimizationResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	params := fill(req.Params)

	// With no demand every feasible point costs zero; the first feasible
	// start wins without any solver work.
	if len(req.Demand) == 0 {
		return emptyDemandResult(req), nil
	}

	obj := Objective(req.Region, req.Cost, req.Demand, params.Penalty, req.Bounds)

	results := make([]startResult, len(req.Starts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers(params))

	for i, start := range req.Starts {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return nil
			}
			results[i] = minimizeFrom(obj, start, req, params)
			if !results[i].ok {
				zap.L().Warn("solver: start discarded after numerical failure",
					zap.Int("start", i),
					zap.Float64("lng", start.Lng),
					zap.Float64("lat", start.Lat),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "solver: optimization cancelled")
	}

	best := selectBest(results, params.Tolerance)
	if best < 0 {
		return nil, eris.Wrapf(ErrNumericalFailure, "all %d starts failed", len(req.Starts))
	}

	win := polish(results[best], req, params, obj)
	res := &model.OptimizationResult{
		Location:   win.loc,
		Cost:       req.Cost.Total(win.loc, req.Demand),
		Feasible:   win.feasible,
		Iterations: win.iters,
		Converged:  win.converged,
		StartIndex: best,
	}

	zap.L().Info("solver: optimization complete",
		zap.Float64("lng", res.Location.Lng),
		zap.Float64("lat", res.Location.Lat),
		zap.Float64("cost", res.Cost),
		zap.Bool("feasible", res.Feasible),
		zap.Bool("converged", res.Converged),
		zap.Int("iterations", res.Iterations),
		zap.Int("winning_start", best),
		zap.Int("starts", len(req.Starts)),
	)
	return res, nil
}

func validate(req Request) error {
	if req.Region == nil {
		return invalidConfigf("region is required")
	}
	if len(req.Starts) == 0 {
		return invalidConfigf("start point set is empty")
	}
	if req.Bounds.Degenerate() {
		return invalidConfigf("degenerate bounds [%g,%g]x[%g,%g]",
			req.Bounds.MinLng, req.Bounds.MaxLng, req.Bounds.MinLat, req.Bounds.MaxLat)
	}
	if !req.Bounds.Intersects(req.Region.Extent()) {
		return invalidConfigf("bounds do not intersect the boundary extent")
	}
	for _, d := range req.Demand {
		if d.Weight < 0 {
			return invalidConfigf("demand point %q has negative weight %g", d.Name, d.Weight)
		}
		if math.IsNaN(d.Weight) || math.IsNaN(d.Location.Lng) || math.IsNaN(d.Location.Lat) {
			return invalidConfigf("demand point %q has non-finite data", d.Name)
		}
	}
	return nil
}

func fill(p Params) Params {
	def := DefaultParams()
	if p.Penalty <= 0 {
		p.Penalty = def.Penalty
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = def.MaxIterations
	}
	if p.Tolerance <= 0 {
		p.Tolerance = def.Tolerance
	}
	return p
}

func workers(p Params) int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func emptyDemandResult(req Request) *model.OptimizationResult {
	res := &model.OptimizationResult{Converged: true}
	for i, s := range req.Starts {
		p := req.Bounds.Clamp(s)
		if req.Region.Feasible(p) {
			res.Location = p
			res.Feasible = true
			res.StartIndex = i
			return res
		}
	}
	res.Location = req.Bounds.Clamp(req.Starts[0])
	return res
}

// descent is one L-BFGS run's outcome, shared by the per-start
// minimization and the polish pass.
type descent struct {
	loc       model.Point
	iters     int
	converged bool
}

// descend runs one L-BFGS descent. LBFGS needs a gradient, so one is
// estimated by forward differences; the penalized objective has no closed
// form. Failures, including minimizer panics, are contained to the call.
func descend(obj func([]float64) float64, start model.Point, bounds model.BBox, params Params) (d descent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("solver: minimizer panicked", zap.Any("panic", r))
			d, ok = descent{}, false
		}
	}()

	s := bounds.Clamp(start)
	problem := optimize.Problem{
		Func: obj,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, obj, x, nil)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: params.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   params.Tolerance,
			Iterations: 20,
		},
	}

	result, err := optimize.Minimize(problem, []float64{s.Lng, s.Lat}, settings, &optimize.LBFGS{})
	if result == nil || len(result.X) != 2 ||
		!isFinite(result.F) || !isFinite(result.X[0]) || !isFinite(result.X[1]) {
		return descent{}, false
	}

	// The penalty already steers the search back inside the box; clamping
	// covers the last step of a diverging line search.
	return descent{
		loc:       bounds.Clamp(model.Point{Lng: result.X[0], Lat: result.X[1]}),
		iters:     result.Stats.MajorIterations,
		converged: err == nil && convergedStatus(result.Status),
	}, true
}

func minimizeFrom(obj func([]float64) float64, start model.Point, req Request, params Params) startResult {
	d, ok := descend(obj, start, req.Bounds, params)
	if !ok {
		return startResult{}
	}

	// Re-evaluate at the clamped iterate so selection compares candidates
	// consistently.
	val := obj([]float64{d.loc.Lng, d.loc.Lat})
	if !isFinite(val) {
		return startResult{}
	}

	return startResult{
		ok:        true,
		loc:       d.loc,
		objective: val,
		feasible:  req.Region.Feasible(d.loc),
		iters:     d.iters,
		converged: d.converged,
	}
}

// polish pushes the winning candidate the rest of the way to a blocking
// constraint. The penalized surface is flat on the infeasible side, so
// descent stalls some distance short of the constraint edge; locating the
// unconstrained cost minimum and bisecting back along the segment to the
// feasible winner lands on the edge itself. Kept only when it improves
// the objective.
func polish(win startResult, req Request, params Params, obj func([]float64) float64) startResult {
	if !win.ok || !win.feasible || len(req.Demand) == 0 {
		return win
	}

	free := func(x []float64) float64 {
		p := model.Point{Lng: x[0], Lat: x[1]}
		c := req.Cost.Total(p, req.Demand)
		if !req.Bounds.Contains(p) {
			return c + params.Penalty
		}
		return c
	}
	d, ok := descend(free, win.loc, req.Bounds, params)
	if !ok {
		return win
	}

	cand := d.loc
	if !req.Region.Feasible(cand) {
		lo, hi := cand, win.loc
		for i := 0; i < 64; i++ {
			mid := model.Point{Lng: (lo.Lng + hi.Lng) / 2, Lat: (lo.Lat + hi.Lat) / 2}
			if req.Region.Feasible(mid) {
				hi = mid
			} else {
				lo = mid
			}
		}
		cand = hi
	}

	val := obj([]float64{cand.Lng, cand.Lat})
	if !isFinite(val) || val >= win.objective {
		return win
	}
	win.loc = cand
	win.objective = val
	return win
}

func convergedStatus(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// selectBest picks the lowest objective; ties within tol prefer a feasible
// candidate and then the earliest start, so repeated runs with the same
// start set are reproducible. Returns -1 when every start failed.
func selectBest(results []startResult, tol float64) int {
	best := -1
	for i, r := range results {
		if !r.ok {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := results[best]
		switch {
		case r.objective < b.objective-tol:
			best = i
		case math.Abs(r.objective-b.objective) <= tol && r.feasible && !b.feasible:
			best = i
		}
	}
	return best
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
