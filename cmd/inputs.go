package main

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	geom "github.com/twpayne/go-geom"

	"github.com/ecoplan-lk/siteopt-cli/internal/costmodel"
	"github.com/ecoplan-lk/siteopt-cli/internal/geoload"
	"github.com/ecoplan-lk/siteopt-cli/internal/geometry"
	"github.com/ecoplan-lk/siteopt-cli/internal/model"
	"github.com/ecoplan-lk/siteopt-cli/internal/solver"
	"github.com/ecoplan-lk/siteopt-cli/internal/store"
)

// geoInputs holds the geographic input flags shared by the optimize,
// feasible, cost, grid and serve commands. Unset flags fall back to the
// geo section of the config file.
type geoInputs struct {
	boundaryPath  string
	boundaryField string
	boundaryName  string
	exclusions    []string
}

func (g *geoInputs) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&g.boundaryPath, "boundary", "", "boundary shapefile or GeoJSON (default from config)")
	cmd.Flags().StringVar(&g.boundaryField, "boundary-field", "", "attribute field selecting the country record, e.g. NAME")
	cmd.Flags().StringVar(&g.boundaryName, "boundary-name", "", "attribute value selecting the country record, e.g. 'Sri Lanka'")
	cmd.Flags().StringArrayVar(&g.exclusions, "exclude", nil, "exclusion layer as path[:buffer], repeatable")
}

// buildRegion loads the boundary and every exclusion layer into a Region.
func (g *geoInputs) buildRegion() (*geometry.Region, error) {
	boundaryPath := g.boundaryPath
	if boundaryPath == "" {
		boundaryPath = cfg.Geo.BoundaryPath
	}
	if boundaryPath == "" {
		return nil, eris.New("no boundary: set --boundary or geo.boundary_path")
	}

	field := g.boundaryField
	if field == "" {
		field = cfg.Geo.BoundaryField
	}
	name := g.boundaryName
	if name == "" {
		name = cfg.Geo.BoundaryName
	}
	if name == "" {
		// Without a record selector the whole file is the boundary.
		field = ""
	}

	boundary, err := loadBoundary(boundaryPath, field, name)
	if err != nil {
		return nil, err
	}

	specs := g.exclusions
	if len(specs) == 0 {
		specs = cfg.Geo.Exclusions
	}

	var zones []geometry.ExclusionZone
	for _, spec := range specs {
		path, buffer, err := parseExclusionSpec(spec)
		if err != nil {
			return nil, err
		}
		layer, err := loadZones(path, buffer)
		if err != nil {
			return nil, err
		}
		zones = append(zones, layer...)
	}

	return geometry.NewRegion(boundary, zones)
}

func loadBoundary(path, field, name string) (geom.T, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return geoload.BoundaryFromShapefile(path, field, name)
	case ".geojson", ".json":
		return geoload.BoundaryFromGeoJSON(path)
	default:
		return nil, eris.Errorf("unsupported boundary file %s (want .shp or .geojson)", path)
	}
}

func loadZones(path string, buffer float64) ([]geometry.ExclusionZone, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return geoload.ZonesFromShapefile(path, buffer)
	case ".geojson", ".json":
		return geoload.ZonesFromGeoJSON(path, buffer)
	default:
		return nil, eris.Errorf("unsupported exclusion file %s (want .shp or .geojson)", path)
	}
}

// parseExclusionSpec splits "path[:buffer]". A trailing segment that parses
// as a number is the buffer distance in coordinate units.
func parseExclusionSpec(spec string) (string, float64, error) {
	if i := strings.LastIndex(spec, ":"); i > 0 {
		if buffer, err := strconv.ParseFloat(spec[i+1:], 64); err == nil {
			if buffer < 0 {
				return "", 0, eris.Errorf("negative buffer in exclusion spec %q", spec)
			}
			return spec[:i], buffer, nil
		}
	}
	return spec, 0, nil
}

// parseBounds reads "minLng,minLat,maxLng,maxLat".
func parseBounds(s string) (model.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.BBox{}, eris.Errorf("bounds must be minLng,minLat,maxLng,maxLat, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.BBox{}, eris.Wrapf(err, "bounds component %q", p)
		}
		vals[i] = v
	}
	return model.BBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}, nil
}

// resolveBounds picks the search box: an explicit flag wins, then the
// demand extent (the original model's behavior), then the boundary extent.
func resolveBounds(flag string, region *geometry.Region, demand []model.DemandPoint) (model.BBox, error) {
	if flag != "" {
		return parseBounds(flag)
	}
	if ext, ok := model.DemandExtent(demand); ok && !ext.Degenerate() {
		return ext, nil
	}
	return region.Extent(), nil
}

func costModelFromConfig(metricFlag string) (costmodel.Model, error) {
	name := metricFlag
	if name == "" {
		name = cfg.Cost.Metric
	}
	metric, err := costmodel.ParseMetric(name)
	if err != nil {
		return costmodel.Model{}, err
	}
	return costmodel.Model{
		Metric:          metric,
		CostPerKm:       cfg.Cost.CostPerKm,
		VehicleCapacity: cfg.Cost.VehicleCapacity,
	}, nil
}

func solverParamsFromConfig() solver.Params {
	return solver.Params{
		Penalty:       cfg.Solver.Penalty,
		MaxIterations: cfg.Solver.MaxIterations,
		Tolerance:     cfg.Solver.Tolerance,
		Workers:       cfg.Solver.Workers,
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
