// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"neardeal/cli/internal/backend"
	apperrors "neardeal/cli/internal/errors"
	"neardeal/cli/internal/httperrors"
)

// whoamiCmd shows the signed-in account. Requests go through the authorizing
// transport, so an expired token is refreshed silently first.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show current authenticated account",
	Long: `The whoami command asks the NearDeal API for the profile of the signed-in account.
If the stored token has expired it is refreshed silently; when the refresh is
rejected you are signed out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		name, ok, err := whoAmI(ctx, a, a.authorizedAPI(nil))
		if err != nil {
			if httperrors.IsNetworkError(err) && !backend.IsUnauthorized(err) {
				return httperrors.FormatNetworkError(err, "loading your profile", httperrors.ExtractHostFromURL(a.cfg.APIBaseURL))
			}
			return err
		}
		if !ok {
			printNotLoggedIn()
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "👤 Current user: %s\n", name)
		return nil
	},
}

// whoAmI returns the display name of the signed-in account. ok is false when the
// session is not authenticated, including after a rejected refresh.
func whoAmI(ctx context.Context, a *app, api backend.API) (string, bool, error) {
	st, err := a.resolveSession(ctx)
	if err != nil {
		return "", false, err
	}
	// A stored but expired token resolves as signed out; the transport can still
	// refresh it, so only bail out when nothing is stored at all.
	if !st.IsAuthenticated {
		if _, stored, err := a.tokens.Read(ctx); err != nil || !stored {
			return "", false, err
		}
	}

	profile, err := api.GetMe(ctx, "")
	if err != nil {
		if backend.IsUnauthorized(err) || apperrors.Is(err, apperrors.RefreshFailed) {
			return "", false, nil
		}
		return "", false, err
	}
	return backend.DisplayName(profile), true, nil
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
