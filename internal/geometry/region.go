// Package geometry evaluates siting constraints against boundary and
// exclusion geometries using planar predicates from go-geom.
package geometry

import (
	"fmt"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

// DefaultEps is the tolerance applied to containment and distance tests.
// Gradient-based solvers probe near-identical coordinates; without a
// consistent tolerance a point on a constraint edge flaps between feasible
// and infeasible across evaluations.
const DefaultEps = 1e-9

// ExclusionZone is a region where siting is disallowed, together with a
// minimum clearance distance in coordinate units. Geom may be any polygonal,
// line or point geometry; a candidate is disallowed inside the geometry or
// closer to it than Buffer.
type ExclusionZone struct {
	Name   string
	Geom   geom.T
	Buffer float64
}

// Region is an immutable feasibility predicate over a country boundary and
// a set of exclusion zones. Safe for concurrent use.
type Region struct {
	boundary geom.T
	zones    []ExclusionZone
	eps      float64
}

// RegionOption configures a Region.
type RegionOption func(*Region)

// WithEps overrides the numeric tolerance.
func WithEps(eps float64) RegionOption {
	return func(r *Region) { r.eps = eps }
}

// NewRegion builds a Region. The boundary must be a Polygon or MultiPolygon;
// exclusion buffers must be non-negative. Violations classify as
// model.ErrInvalidConfiguration.
func NewRegion(boundary geom.T, zones []ExclusionZone, opts ...RegionOption) (*Region, error) {
	switch boundary.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
	default:
		return nil, eris.Wrapf(model.ErrInvalidConfiguration,
			"geometry: boundary must be a polygon or multipolygon, got %T", boundary)
	}
	for _, z := range zones {
		if z.Buffer < 0 {
			return nil, eris.Wrapf(model.ErrInvalidConfiguration,
				"geometry: exclusion zone %q has negative buffer %g", z.Name, z.Buffer)
		}
	}

	r := &Region{boundary: boundary, zones: zones, eps: DefaultEps}
	for _, opt := range opts {
		opt(r)
	}
	if r.eps < 0 {
		return nil, eris.Wrapf(model.ErrInvalidConfiguration, "geometry: negative tolerance %g", r.eps)
	}
	return r, nil
}

// Feasible reports whether p lies inside the boundary and respects every
// exclusion zone's buffer distance. Pure predicate; no side effects.
func (r *Region) Feasible(p model.Point) bool {
	return len(r.violations(p, true)) == 0
}

// Violations returns a human-readable description of each constraint p
// violates. Empty means feasible.
func (r *Region) Violations(p model.Point) []string {
	return r.violations(p, false)
}

func (r *Region) violations(p model.Point, firstOnly bool) []string {
	var out []string

	if !r.insideBoundary(p) {
		out = append(out, "outside boundary")
		if firstOnly {
			return out
		}
	}

	for _, z := range r.zones {
		if !r.clearOf(z, p) {
			name := z.Name
			if name == "" {
				name = "exclusion zone"
			}
			out = append(out, fmt.Sprintf("within %s (buffer %g)", name, z.Buffer))
			if firstOnly {
				return out
			}
		}
	}
	return out
}

// insideBoundary treats points within eps of the outline as inside.
func (r *Region) insideBoundary(p model.Point) bool {
	if ContainsPoint(r.boundary, p) {
		return true
	}
	return DistanceToGeometry(r.boundary, p) <= r.eps
}

// clearOf reports whether p is outside z and at least Buffer away from it,
// up to the tolerance.
func (r *Region) clearOf(z ExclusionZone, p model.Point) bool {
	if ContainsPoint(z.Geom, p) {
		return false
	}
	if z.Buffer == 0 {
		return true
	}
	return DistanceToGeometry(z.Geom, p) >= z.Buffer-r.eps
}

// ZoneCount returns the number of exclusion zones.
func (r *Region) ZoneCount() int { return len(r.zones) }

// Extent returns the bounding box of the boundary geometry.
func (r *Region) Extent() model.BBox { return ExtentOf(r.boundary) }
