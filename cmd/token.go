// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"neardeal/cli/internal/logging"
	"neardeal/cli/internal/tokenstore"
)

// tokenCmd prints the stored token record with the credential masked.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show the stored token (masked) and its expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, ok, err := a.tokens.Read(ctx)
		if err != nil {
			return err
		}
		if !ok {
			printNotLoggedIn()
			return nil
		}
		valid, err := a.tokens.IsValid(ctx)
		if err != nil {
			return err
		}
		writeTokenRecord(cmd.OutOrStdout(), rec, valid, time.Now())
		return nil
	},
}

func writeTokenRecord(w io.Writer, rec tokenstore.Record, valid bool, now time.Time) {
	fmt.Fprintf(w, "token:      %s\n", logging.MaskToken(rec.AccessToken))
	fmt.Fprintf(w, "expires at: %s\n", rec.ExpiresAt.Local().Format(time.RFC3339))
	if valid {
		fmt.Fprintf(w, "status:     valid for %s\n", rec.ExpiresAt.Sub(now).Round(time.Second))
	} else {
		fmt.Fprintln(w, "status:     expired (run 'neardeal refresh')")
	}
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
