package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ecoplan-lk/siteopt-cli/internal/geoload"
	"github.com/ecoplan-lk/siteopt-cli/internal/model"
	"github.com/ecoplan-lk/siteopt-cli/internal/solver"
)

var (
	optimizeGeo     geoInputs
	optimizeDemand  string
	optimizeBounds  string
	optimizeMetric  string
	optimizeStarts  []string
	optimizeNStarts int
	optimizeSeed    uint64
	optimizePenalty float64
	optimizeMaxIter int
	optimizeOutput  string
	optimizeSave    bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Find the optimal facility location",
	Long: `Runs the multi-start constrained optimization.

Demand points come from a CSV or XLSX file with longitude, latitude and
waste-quantity columns. The boundary and exclusion layers come from
shapefiles or GeoJSON. The search is bounded: by default to the demand
extent, or to an explicit --bounds box.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		demand, err := geoload.DemandFromFile(optimizeDemand)
		if err != nil {
			return err
		}

		region, err := optimizeGeo.buildRegion()
		if err != nil {
			return err
		}

		bounds, err := resolveBounds(optimizeBounds, region, demand)
		if err != nil {
			return err
		}

		costModel, err := costModelFromConfig(optimizeMetric)
		if err != nil {
			return err
		}

		params := solverParamsFromConfig()
		if optimizePenalty > 0 {
			params.Penalty = optimizePenalty
		}
		if optimizeMaxIter > 0 {
			params.MaxIterations = optimizeMaxIter
		}

		starts, err := buildStarts(demand, bounds)
		if err != nil {
			return err
		}

		req := solver.Request{
			Demand: demand,
			Region: region,
			Cost:   costModel,
			Starts: starts,
			Bounds: bounds,
			Params: params,
		}

		var run *model.Run
		if optimizeSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run, err = st.CreateRun(ctx, model.RunRequest{
				DemandCount:    len(demand),
				ExclusionCount: region.ZoneCount(),
				BoundarySource: optimizeGeo.boundaryPath,
				Metric:         string(costModel.Metric),
				Penalty:        params.Penalty,
				MaxIterations:  params.MaxIterations,
				StartCount:     len(starts),
				Bounds:         bounds,
			})
			if err != nil {
				return err
			}

			result, optErr := solver.Optimize(ctx, req)
			if optErr != nil {
				if ferr := st.FailRun(ctx, run.ID, optErr); ferr != nil {
					zap.L().Warn("failed to record run failure", zap.Error(ferr))
				}
				return optErr
			}
			if err := st.CompleteRun(ctx, run.ID, result); err != nil {
				zap.L().Warn("failed to record run result", zap.Error(err))
			}
			fmt.Fprintf(os.Stderr, "Run saved: %s\n", run.ID)
			return renderResult(result)
		}

		result, err := solver.Optimize(ctx, req)
		if err != nil {
			return err
		}
		return renderResult(result)
	},
}

// buildStarts combines explicit --start points with generated defaults.
func buildStarts(demand []model.DemandPoint, bounds model.BBox) ([]model.Point, error) {
	var starts []model.Point
	for _, s := range optimizeStarts {
		p, err := parsePoint(s)
		if err != nil {
			return nil, err
		}
		starts = append(starts, p)
	}
	if len(starts) > 0 {
		return starts, nil
	}

	n := optimizeNStarts
	if n <= 0 {
		n = cfg.Solver.Starts
	}
	seed := optimizeSeed
	if seed == 0 {
		seed = cfg.Solver.Seed
	}
	return solver.DefaultStarts(demand, bounds, n, seed), nil
}

func parsePoint(s string) (model.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Point{}, eris.Errorf("point must be lng,lat, got %q", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Point{}, eris.Wrapf(err, "longitude %q", parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Point{}, eris.Wrapf(err, "latitude %q", parts[1])
	}
	return model.Point{Lng: lng, Lat: lat}, nil
}

func renderResult(result *model.OptimizationResult) error {
	switch optimizeOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(result)
	default:
		fmt.Printf("Optimal location: %.6f, %.6f\n", result.Location.Lng, result.Location.Lat)
		fmt.Printf("Transport cost:   %.6f\n", result.Cost)
		fmt.Printf("Feasible:         %t\n", result.Feasible)
		fmt.Printf("Converged:        %t (%d iterations, start %d)\n",
			result.Converged, result.Iterations, result.StartIndex)
		if !result.Feasible {
			fmt.Println("No feasible point found; consider relaxing exclusions or widening bounds.")
		}
		return nil
	}
}

func init() {
	optimizeGeo.register(optimizeCmd)
	optimizeCmd.Flags().StringVar(&optimizeDemand, "demand", "", "demand points file (.csv or .xlsx)")
	optimizeCmd.Flags().StringVar(&optimizeBounds, "bounds", "", "search bounds minLng,minLat,maxLng,maxLat (default: demand extent)")
	optimizeCmd.Flags().StringVar(&optimizeMetric, "metric", "", "distance metric: euclidean or haversine (default from config)")
	optimizeCmd.Flags().StringArrayVar(&optimizeStarts, "start", nil, "explicit start point lng,lat, repeatable (overrides generated starts)")
	optimizeCmd.Flags().IntVar(&optimizeNStarts, "starts", 0, "number of generated start points (default from config)")
	optimizeCmd.Flags().Uint64Var(&optimizeSeed, "seed", 0, "start generation seed (default from config)")
	optimizeCmd.Flags().Float64Var(&optimizePenalty, "penalty", 0, "infeasibility penalty (default from config)")
	optimizeCmd.Flags().IntVar(&optimizeMaxIter, "max-iterations", 0, "iteration cap per start (default from config)")
	optimizeCmd.Flags().StringVar(&optimizeOutput, "output", "text", "output format: text, json or yaml")
	optimizeCmd.Flags().BoolVar(&optimizeSave, "save", false, "persist the run to the configured store")
	_ = optimizeCmd.MarkFlagRequired("demand")
	rootCmd.AddCommand(optimizeCmd)
}
