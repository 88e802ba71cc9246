// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// refreshCmd runs the silent refresh procedure on demand.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored token for a new one",
	Long: `The refresh command trades the stored access token, even an expired one, for a
new token. A rejected refresh signs you out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		grant, err := a.refresher.Refresh(ctx)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Token refreshed, valid for %s\n", (time.Duration(grant.ExpiresIn) * time.Second).String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
