package solver

import (
	"github.com/ecoplan-lk/siteopt-cli/internal/costmodel"
	"github.com/ecoplan-lk/siteopt-cli/internal/geometry"
	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

// Objective builds the penalized scalar objective minimized by the driver.
//
// The returned function is the transport cost when the candidate is inside
// bounds and feasible, and cost+penalty otherwise. Adding a constant that
// dominates any realistic transport cost turns the constrained problem into
// an unconstrained one, at the price of a non-smooth surface at constraint
// edges; the driver copes with that through multi-start, not by assuming
// smoothness.
//
// The closure is pure and safe for concurrent callers: region, cost model
// and demand are immutable snapshots, and the penalty is an explicit value
// rather than package state.
func Objective(region *geometry.Region, cost costmodel.Model, demand []model.DemandPoint, penalty float64, bounds model.BBox) func(x []float64) float64 {
	return func(x []float64) float64 {
		p := model.Point{Lng: x[0], Lat: x[1]}
		c := cost.Total(p, demand)
		if !bounds.Contains(p) || !region.Feasible(p) {
			return c + penalty
		}
		return c
	}
}
