// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neardeal/cli/internal/backend"
	"neardeal/cli/internal/httperrors"
	"neardeal/cli/internal/terminal"
)

var (
	loginProvider string
	loginToken    string
)

// loginCmd exchanges a social-login provider token for a NearDeal access token.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in with a Kakao or Google token",
	Long: `The login command exchanges an access token issued by a social-login provider
(Kakao or Google) for a NearDeal access token, then stores it in the configured
credential storage. When --token is omitted the provider token is read from the
terminal without echo, or from stdin when it is piped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := backend.ParseProvider(loginProvider)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if st, err := a.resolveSession(ctx); err == nil && st.IsAuthenticated {
			pterm.Println("Already logged in. Run 'neardeal logout' first to switch accounts.")
			return nil
		}

		providerToken := loginToken
		if providerToken == "" {
			providerToken, err = terminal.ReadSecret(os.Stdout, os.Stdin, fmt.Sprintf("Paste your %s access token: ", provider))
			if err != nil {
				return err
			}
		}

		name, err := signIn(ctx, a, provider, providerToken)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Logged in as %s\n", name)
		return nil
	},
}

// signIn exchanges the provider token, writes the grant through the session
// controller and returns a display name for the new account.
func signIn(ctx context.Context, a *app, provider backend.Provider, providerToken string) (string, error) {
	stop := startInlineSpinner(os.Stdout, "Signing in", spinnerFrames, 120*time.Millisecond)
	grant, err := a.api.ExchangeSocialToken(ctx, provider, providerToken)
	stop()
	if err != nil {
		if httperrors.IsNetworkError(err) {
			return "", httperrors.FormatNetworkError(err, "signing in", httperrors.ExtractHostFromURL(a.cfg.APIBaseURL))
		}
		return "", err
	}
	if err := a.session.HandleAuthSuccess(ctx, grant.AccessToken, grant.ExpiresIn); err != nil {
		return "", err
	}

	profile, err := a.api.GetMe(ctx, grant.AccessToken)
	if err != nil {
		a.logger.Debug().Err(err).Msg("profile lookup after login failed")
		return string(provider) + " account", nil
	}
	return backend.DisplayName(profile), nil
}

func init() {
	loginCmd.Flags().StringVarP(&loginProvider, "provider", "p", "kakao", "Social-login provider (kakao or google)")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Provider access token (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}
