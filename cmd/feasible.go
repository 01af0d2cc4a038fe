package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feasibleGeo geoInputs

var feasibleCmd = &cobra.Command{
	Use:   "feasible <lng,lat>",
	Short: "Check whether a coordinate is a feasible facility site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parsePoint(args[0])
		if err != nil {
			return err
		}

		region, err := feasibleGeo.buildRegion()
		if err != nil {
			return err
		}

		violations := region.Violations(p)
		if len(violations) == 0 {
			fmt.Printf("%.6f, %.6f is feasible\n", p.Lng, p.Lat)
			return nil
		}

		fmt.Printf("%.6f, %.6f is not feasible:\n", p.Lng, p.Lat)
		for _, v := range violations {
			fmt.Printf("  - %s\n", v)
		}
		return nil
	},
}

func init() {
	feasibleGeo.register(feasibleCmd)
	rootCmd.AddCommand(feasibleCmd)
}
