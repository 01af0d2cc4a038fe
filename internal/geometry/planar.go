package geometry

import (
	"math"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

// Coord converts a model.Point to a go-geom planar coordinate.
func Coord(p model.Point) geom.Coord {
	return geom.Coord{p.Lng, p.Lat}
}

// ContainsPoint reports whether p lies inside a polygonal geometry.
// Non-areal geometries (points, lines) contain nothing.
func ContainsPoint(g geom.T, p model.Point) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, p)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), p) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// polygonContains tests the outer ring and subtracts holes.
func polygonContains(poly *geom.Polygon, p model.Point) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	c := Coord(p)
	if !xy.IsPointInRing(poly.Layout(), c, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), c, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// DistanceToGeometry returns the planar distance from p to the nearest part
// of g, in coordinate units. Points inside an areal geometry are at
// distance zero.
func DistanceToGeometry(g geom.T, p model.Point) float64 {
	c := Coord(p)
	switch t := g.(type) {
	case *geom.Point:
		return planarDistance(c, t.Coords())
	case *geom.MultiPoint:
		min := math.Inf(1)
		for i := 0; i < t.NumPoints(); i++ {
			if d := planarDistance(c, t.Point(i).Coords()); d < min {
				min = d
			}
		}
		return min
	case *geom.LineString:
		return xy.DistanceFromPointToLineString(t.Layout(), c, t.FlatCoords())
	case *geom.MultiLineString:
		min := math.Inf(1)
		for i := 0; i < t.NumLineStrings(); i++ {
			ls := t.LineString(i)
			if d := xy.DistanceFromPointToLineString(ls.Layout(), c, ls.FlatCoords()); d < min {
				min = d
			}
		}
		return min
	case *geom.Polygon:
		return distanceToPolygon(t, c, p)
	case *geom.MultiPolygon:
		min := math.Inf(1)
		for i := 0; i < t.NumPolygons(); i++ {
			if d := distanceToPolygon(t.Polygon(i), c, p); d < min {
				min = d
			}
			if min == 0 {
				return 0
			}
		}
		return min
	default:
		return math.Inf(1)
	}
}

func distanceToPolygon(poly *geom.Polygon, c geom.Coord, p model.Point) float64 {
	if polygonContains(poly, p) {
		return 0
	}
	min := math.Inf(1)
	for i := 0; i < poly.NumLinearRings(); i++ {
		ring := poly.LinearRing(i)
		if d := xy.DistanceFromPointToLineString(ring.Layout(), c, ring.FlatCoords()); d < min {
			min = d
		}
	}
	return min
}

func planarDistance(a, b geom.Coord) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

// ExtentOf returns the 2D bounding box of a geometry.
func ExtentOf(g geom.T) model.BBox {
	b := g.Bounds()
	return model.BBox{
		MinLng: b.Min(0), MinLat: b.Min(1),
		MaxLng: b.Max(0), MaxLat: b.Max(1),
	}
}
