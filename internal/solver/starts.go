package solver

import (
	"math/rand/v2"

	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

// cornerInset keeps generated corner starts slightly inside the bounds so
// the first finite-difference probe does not immediately leave the box.
const cornerInset = 0.025

// DefaultStarts generates a deterministic multi-start set for the given
// demand and bounds: the weighted demand centroid, the bounds center, the
// four inset corners, then seeded uniform samples until n starts exist.
// The same seed always yields the same set, keeping optimization runs
// reproducible.
func DefaultStarts(demand []model.DemandPoint, bounds model.BBox, n int, seed uint64) []model.Point {
	if n <= 0 {
		return nil
	}

	spanLng := bounds.MaxLng - bounds.MinLng
	spanLat := bounds.MaxLat - bounds.MinLat
	insetLng := spanLng * cornerInset
	insetLat := spanLat * cornerInset

	fixed := []model.Point{
		bounds.Clamp(model.Centroid(demand)),
		{Lng: bounds.MinLng + spanLng/2, Lat: bounds.MinLat + spanLat/2},
		{Lng: bounds.MinLng + insetLng, Lat: bounds.MinLat + insetLat},
		{Lng: bounds.MaxLng - insetLng, Lat: bounds.MinLat + insetLat},
		{Lng: bounds.MinLng + insetLng, Lat: bounds.MaxLat - insetLat},
		{Lng: bounds.MaxLng - insetLng, Lat: bounds.MaxLat - insetLat},
	}
	if len(demand) == 0 {
		// No centroid without demand.
		fixed = fixed[1:]
	}

	if n <= len(fixed) {
		return fixed[:n]
	}

	starts := make([]model.Point, 0, n)
	starts = append(starts, fixed...)

	rng := rand.New(rand.NewPCG(seed, seed))
	for len(starts) < n {
		starts = append(starts, model.Point{
			Lng: bounds.MinLng + rng.Float64()*spanLng,
			Lat: bounds.MinLat + rng.Float64()*spanLat,
		})
	}
	return starts
}
