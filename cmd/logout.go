// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neardeal/cli/internal/logging"
)

// logoutCmd signs out: the backend is told to invalidate the token (best effort)
// and the local record is always cleared.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the stored token",
	Long: `The logout command notifies the NearDeal API that the current token should be
invalidated, then removes the token from credential storage. The remote call is
best effort; the local token is removed even when the API cannot be reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return signOut(ctx, a)
	},
}

func signOut(ctx context.Context, a *app) error {
	if rec, ok, err := a.tokens.Read(ctx); err == nil && ok {
		remoteCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.api.Logout(remoteCtx, rec.AccessToken); err != nil {
			a.logger.Debug().Err(err).Msg("remote logout failed")
			pterm.Warning.Println(logging.PresentError("remote logout failed, signing out locally", err))
		}
		cancel()
	}

	if err := a.session.HandleLogout(ctx); err != nil {
		return err
	}
	pterm.Println("✅ Signed out and removed the stored token")
	return nil
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
