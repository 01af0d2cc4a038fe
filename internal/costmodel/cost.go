// Package costmodel computes aggregate transport cost from demand points to
// a candidate facility location.
package costmodel

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

// Metric selects the distance function. It is fixed for a whole
// optimization run; euclidean operates in raw coordinate units, haversine
// in kilometers on the WGS84 sphere.
type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricHaversine Metric = "haversine"
)

const earthRadiusKm = 6371.0088

// ParseMetric validates a metric name from config or flags.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricEuclidean, MetricHaversine:
		return Metric(s), nil
	default:
		return "", eris.Errorf("costmodel: unknown metric %q (want euclidean or haversine)", s)
	}
}

// Distance returns the distance between two points under the metric.
func (m Metric) Distance(a, b model.Point) float64 {
	if m == MetricHaversine {
		return haversineKm(a, b)
	}
	return math.Hypot(a.Lng-b.Lng, a.Lat-b.Lat)
}

func haversineKm(a, b model.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Model holds the transport cost parameters.
//
// When VehicleCapacity > 0, each demand point contributes
// CostPerKm * ceil(weight/VehicleCapacity) * distance: waste moves in full
// truckloads, so cost steps with trip count. With VehicleCapacity <= 0 the
// contribution is the plain weighted distance weight * distance.
type Model struct {
	Metric          Metric  `json:"metric"`
	CostPerKm       float64 `json:"cost_per_km"`
	VehicleCapacity float64 `json:"vehicle_capacity"`
}

// Default returns the production cost parameters: 5-ton trucks at a cost
// of 0.02 per kilometer-trip, planar distances.
func Default() Model {
	return Model{
		Metric:          MetricEuclidean,
		CostPerKm:       0.02,
		VehicleCapacity: 5,
	}
}

// EffectiveWeight returns the per-distance-unit cost coefficient for a
// demand weight.
func (m Model) EffectiveWeight(weight float64) float64 {
	if m.VehicleCapacity > 0 {
		return m.CostPerKm * math.Ceil(weight/m.VehicleCapacity)
	}
	return weight
}

// Total computes the aggregate transport cost from every demand point to p.
// Empty demand costs zero. The result is non-negative for non-negative
// weights and, for a single demand point under the euclidean metric, convex
// in p.
func (m Model) Total(p model.Point, demand []model.DemandPoint) float64 {
	var total float64
	for _, d := range demand {
		total += m.EffectiveWeight(d.Weight) * m.Metric.Distance(p, d.Location)
	}
	return total
}
