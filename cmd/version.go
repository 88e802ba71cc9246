// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version holds the CLI version, set at build time with
// -ldflags "-X neardeal/cli/cmd.Version=...".
var Version = "0.0.0-dev"

// versionCmd prints the CLI version without contacting the API.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "neardeal %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
