package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/ecoplan-lk/siteopt-cli/internal/geoload"
	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

var (
	gridGeo    geoInputs
	gridDemand string
	gridBounds string
	gridMetric string
	gridSize   int
	gridOut    string
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Export a feasibility/cost sample grid as GeoJSON",
	Long: `Evaluates feasibility and transport cost over an evenly spaced grid
inside the search bounds and writes a GeoJSON FeatureCollection of sample
points. Front-ends render it as a feasibility heat-map.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var demand []model.DemandPoint
		if gridDemand != "" {
			var err error
			demand, err = geoload.DemandFromFile(gridDemand)
			if err != nil {
				return err
			}
		}

		region, err := gridGeo.buildRegion()
		if err != nil {
			return err
		}

		bounds, err := resolveBounds(gridBounds, region, demand)
		if err != nil {
			return err
		}

		costModel, err := costModelFromConfig(gridMetric)
		if err != nil {
			return err
		}

		n := gridSize
		if n < 2 {
			n = 50
		}
		stepLng := (bounds.MaxLng - bounds.MinLng) / float64(n-1)
		stepLat := (bounds.MaxLat - bounds.MinLat) / float64(n-1)

		fc := &geojson.FeatureCollection{}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				p := model.Point{
					Lng: bounds.MinLng + float64(i)*stepLng,
					Lat: bounds.MinLat + float64(j)*stepLat,
				}
				props := map[string]any{
					"feasible": region.Feasible(p),
				}
				if len(demand) > 0 {
					props["cost"] = costModel.Total(p, demand)
				}
				fc.Features = append(fc.Features, &geojson.Feature{
					Geometry:   geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}),
					Properties: props,
				})
			}
		}

		out := os.Stdout
		if gridOut != "" {
			f, err := os.Create(gridOut)
			if err != nil {
				return err
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := json.NewEncoder(out).Encode(fc); err != nil {
			return err
		}

		zap.L().Info("grid exported",
			zap.Int("samples", len(fc.Features)),
			zap.String("output", gridOut),
		)
		return nil
	},
}

func init() {
	gridGeo.register(gridCmd)
	gridCmd.Flags().StringVar(&gridDemand, "demand", "", "demand points file, enables cost sampling (optional)")
	gridCmd.Flags().StringVar(&gridBounds, "bounds", "", "sample bounds minLng,minLat,maxLng,maxLat (default: demand or boundary extent)")
	gridCmd.Flags().StringVar(&gridMetric, "metric", "", "distance metric: euclidean or haversine (default from config)")
	gridCmd.Flags().IntVar(&gridSize, "size", 50, "grid resolution per axis")
	gridCmd.Flags().StringVar(&gridOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(gridCmd)
}
