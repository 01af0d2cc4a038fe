package geoload

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/ecoplan-lk/siteopt-cli/internal/geometry"
)

// ZonesFromGeoJSON reads a GeoJSON file as exclusion zones with the given
// buffer distance. The file may be a FeatureCollection, a single Feature or
// a bare geometry. Feature names are taken from a "name" property when
// present.
func ZonesFromGeoJSON(path string, buffer float64) ([]geometry.ExclusionZone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: read %s", path)
	}

	features, err := decodeFeatures(data)
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: parse %s", path)
	}

	var zones []geometry.ExclusionZone
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		zones = append(zones, geometry.ExclusionZone{
			Name:   featureName(f),
			Geom:   f.Geometry,
			Buffer: buffer,
		})
	}

	zap.L().Info("exclusion geojson loaded",
		zap.String("path", path),
		zap.Int("zones", len(zones)),
		zap.Float64("buffer", buffer),
	)
	return zones, nil
}

// BoundaryFromGeoJSON reads a boundary geometry from a GeoJSON file,
// merging every polygonal feature into a single MultiPolygon.
func BoundaryFromGeoJSON(path string) (geom.T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: read %s", path)
	}

	features, err := decodeFeatures(data)
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: parse %s", path)
	}

	boundary := geom.NewMultiPolygon(geom.XY)
	for _, f := range features {
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			if err := boundary.Push(g); err != nil {
				zap.L().Debug("geoload: skipping malformed boundary polygon", zap.Error(err))
			}
		case *geom.MultiPolygon:
			for i := 0; i < g.NumPolygons(); i++ {
				if err := boundary.Push(g.Polygon(i)); err != nil {
					zap.L().Debug("geoload: skipping malformed boundary polygon", zap.Error(err))
				}
			}
		}
	}

	if boundary.NumPolygons() == 0 {
		return nil, eris.Errorf("geoload: no polygonal features in %s", path)
	}
	return boundary, nil
}

// decodeFeatures accepts a FeatureCollection, a Feature, or a bare geometry.
func decodeFeatures(data []byte) ([]*geojson.Feature, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err == nil && len(fc.Features) > 0 {
		return fc.Features, nil
	}

	var f geojson.Feature
	if err := json.Unmarshal(data, &f); err == nil && f.Geometry != nil {
		return []*geojson.Feature{&f}, nil
	}

	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "not a feature collection, feature or geometry")
	}
	return []*geojson.Feature{{Geometry: g}}, nil
}

func featureName(f *geojson.Feature) string {
	for _, key := range []string{"name", "Name", "NAME"} {
		if v, ok := f.Properties[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
