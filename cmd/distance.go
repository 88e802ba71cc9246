// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"neardeal/cli/internal/geo"
)

// distanceCmd prints the great-circle distance between two coordinates the way
// store listings show it.
var distanceCmd = &cobra.Command{
	Use:   "distance LAT1 LON1 LAT2 LON2",
	Short: "Show the distance between two coordinates",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := geo.ParsePoint(args[0], args[1])
		if err != nil {
			return err
		}
		to, err := geo.ParsePoint(args[2], args[3])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), geo.FormatDistance(geo.Haversine(from, to)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(distanceCmd)
}
