// Package geoload reads boundary, exclusion and demand inputs from GIS and
// tabular file formats into the core's domain types.
package geoload

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/ecoplan-lk/siteopt-cli/internal/geometry"
)

// BoundaryFromShapefile reads the country outline from a shapefile. When
// nameField and nameValue are set, only records whose attribute matches are
// used (e.g. NAME == "Sri Lanka" in a world countries file); otherwise all
// polygonal records are merged. The result is a MultiPolygon.
func BoundaryFromShapefile(path, nameField, nameValue string) (geom.T, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	if nameField != "" {
		nameIdx = fieldIndex(reader, nameField)
		if nameIdx < 0 {
			return nil, eris.Errorf("geoload: field %q not found in %s", nameField, path)
		}
	}

	boundary := geom.NewMultiPolygon(geom.XY)
	var matched int
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}
		if nameIdx >= 0 && strings.TrimSpace(reader.Attribute(nameIdx)) != nameValue {
			continue
		}

		mp := polygonShapeToMultiPolygon(shape)
		if mp == nil {
			continue
		}
		for i := 0; i < mp.NumPolygons(); i++ {
			if err := boundary.Push(mp.Polygon(i)); err != nil {
				zap.L().Debug("geoload: skipping malformed boundary part", zap.Error(err))
			}
		}
		matched++
	}

	if boundary.NumPolygons() == 0 {
		return nil, eris.Errorf("geoload: no boundary polygons in %s (name %q)", path, nameValue)
	}

	zap.L().Info("boundary loaded",
		zap.String("path", path),
		zap.Int("records", matched),
		zap.Int("polygons", boundary.NumPolygons()),
	)
	return boundary, nil
}

// ZonesFromShapefile reads every record of a shapefile as an exclusion zone
// with the given buffer distance. Point records (e.g. protected-area site
// markers) become point zones; polygon records become areal zones.
func ZonesFromShapefile(path string, buffer float64) ([]geometry.ExclusionZone, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, "NAME")

	var zones []geometry.ExclusionZone
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}

		var g geom.T
		switch s := shape.(type) {
		case *shp.Point:
			g = geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
		case *shp.Polygon:
			g = polygonShapeToMultiPolygon(s)
		case *shp.PolyLine:
			g = polyLineToMultiLineString(s)
		}
		if g == nil {
			continue
		}

		var name string
		if nameIdx >= 0 {
			name = strings.TrimSpace(reader.Attribute(nameIdx))
		}
		zones = append(zones, geometry.ExclusionZone{Name: name, Geom: g, Buffer: buffer})
	}

	zap.L().Info("exclusion shapefile loaded",
		zap.String("path", path),
		zap.Int("zones", len(zones)),
		zap.Float64("buffer", buffer),
	)
	return zones, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if
// not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonShapeToMultiPolygon converts a shapefile Polygon to a
// geom.MultiPolygon, one polygon per part.
func polygonShapeToMultiPolygon(s shp.Shape) *geom.MultiPolygon {
	p, ok := s.(*shp.Polygon)
	if !ok || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start, end := partRange(p.Parts, i, p.NumParts, len(p.Points))

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geoload: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geoload: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// polyLineToMultiLineString converts a shapefile PolyLine (rivers, coasts)
// to a geom.MultiLineString.
func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		start, end := partRange(pl.Parts, i, pl.NumParts, len(pl.Points))

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}

		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("geoload: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func partRange(parts []int32, i, numParts int32, numPoints int) (int32, int32) {
	start := parts[i]
	if i+1 < numParts {
		return start, parts[i+1]
	}
	return start, int32(numPoints)
}
