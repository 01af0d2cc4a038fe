package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecoplan-lk/siteopt-cli/internal/geoload"
)

var (
	costDemand string
	costMetric string
)

var costCmd = &cobra.Command{
	Use:   "cost <lng,lat>",
	Short: "Compute total transport cost at a coordinate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parsePoint(args[0])
		if err != nil {
			return err
		}

		demand, err := geoload.DemandFromFile(costDemand)
		if err != nil {
			return err
		}

		costModel, err := costModelFromConfig(costMetric)
		if err != nil {
			return err
		}

		total := costModel.Total(p, demand)
		fmt.Printf("Transport cost at %.6f, %.6f: %.6f (%d demand points, %s)\n",
			p.Lng, p.Lat, total, len(demand), costModel.Metric)
		return nil
	},
}

func init() {
	costCmd.Flags().StringVar(&costDemand, "demand", "", "demand points file (.csv or .xlsx)")
	costCmd.Flags().StringVar(&costMetric, "metric", "", "distance metric: euclidean or haversine (default from config)")
	_ = costCmd.MarkFlagRequired("demand")
	rootCmd.AddCommand(costCmd)
}
