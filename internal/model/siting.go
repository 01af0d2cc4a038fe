// Package model defines the domain types shared across the siting pipeline.
package model

// Point is a geographic coordinate in lng/lat order, WGS84.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// BBox represents a geographic bounding box.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// Contains reports whether p lies inside the box (edges inclusive).
func (b BBox) Contains(p Point) bool {
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Degenerate reports whether the box has no interior.
func (b BBox) Degenerate() bool {
	return b.MinLng >= b.MaxLng || b.MinLat >= b.MaxLat
}

// Clamp returns p moved to the nearest point inside the box.
func (b BBox) Clamp(p Point) Point {
	if p.Lng < b.MinLng {
		p.Lng = b.MinLng
	}
	if p.Lng > b.MaxLng {
		p.Lng = b.MaxLng
	}
	if p.Lat < b.MinLat {
		p.Lat = b.MinLat
	}
	if p.Lat > b.MaxLat {
		p.Lat = b.MaxLat
	}
	return p
}

// Intersects reports whether two boxes share any area.
func (b BBox) Intersects(o BBox) bool {
	return b.MinLng <= o.MaxLng && o.MinLng <= b.MaxLng &&
		b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat
}

// DemandPoint is a waste-generating BOI zone. Weight is the daily waste
// quantity in tons and must be non-negative. Immutable once loaded.
type DemandPoint struct {
	Name     string  `json:"name,omitempty"`
	Location Point   `json:"location"`
	Weight   float64 `json:"weight"`
}

// Centroid returns the weight-averaged center of the demand points.
// Zero-weight sets fall back to the unweighted mean.
func Centroid(demand []DemandPoint) Point {
	if len(demand) == 0 {
		return Point{}
	}
	var sumLng, sumLat, sumW float64
	for _, d := range demand {
		sumLng += d.Location.Lng * d.Weight
		sumLat += d.Location.Lat * d.Weight
		sumW += d.Weight
	}
	if sumW <= 0 {
		sumLng, sumLat = 0, 0
		for _, d := range demand {
			sumLng += d.Location.Lng
			sumLat += d.Location.Lat
		}
		return Point{Lng: sumLng / float64(len(demand)), Lat: sumLat / float64(len(demand))}
	}
	return Point{Lng: sumLng / sumW, Lat: sumLat / sumW}
}

// DemandExtent returns the bounding box of the demand point locations.
// The second return is false for an empty set.
func DemandExtent(demand []DemandPoint) (BBox, bool) {
	if len(demand) == 0 {
		return BBox{}, false
	}
	b := BBox{
		MinLng: demand[0].Location.Lng, MaxLng: demand[0].Location.Lng,
		MinLat: demand[0].Location.Lat, MaxLat: demand[0].Location.Lat,
	}
	for _, d := range demand[1:] {
		if d.Location.Lng < b.MinLng {
			b.MinLng = d.Location.Lng
		}
		if d.Location.Lng > b.MaxLng {
			b.MaxLng = d.Location.Lng
		}
		if d.Location.Lat < b.MinLat {
			b.MinLat = d.Location.Lat
		}
		if d.Location.Lat > b.MaxLat {
			b.MaxLat = d.Location.Lat
		}
	}
	return b, true
}

// OptimizationResult is the outcome of a single optimization request.
// Never mutated after creation.
type OptimizationResult struct {
	Location   Point   `json:"location"`
	Cost       float64 `json:"cost"`
	Feasible   bool    `json:"feasible"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	// StartIndex is the index of the winning start point, for diagnostics.
	StartIndex int `json:"start_index"`
}
