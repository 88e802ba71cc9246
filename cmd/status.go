// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neardeal/cli/internal/session"
	"neardeal/cli/internal/tokenstore"
)

var (
	statusWatch    bool
	statusInterval time.Duration
)

// statusCmd shows the session state. With --watch it keeps running, refreshing the
// token silently shortly before it expires and redrawing on every transition.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether you are signed in",
	Long: `The status command runs the session startup check against the stored token and
prints the result. With --watch it stays in the foreground: the token is refreshed
silently when it is about to expire, and a failed refresh signs you out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !statusWatch {
			st, err := a.resolveSession(ctx)
			if err != nil {
				return err
			}
			pterm.Println(describeState(st))
			printExpiry(ctx, a.tokens)
			return nil
		}
		return watchStatus(ctx, a, statusInterval)
	},
}

func printExpiry(ctx context.Context, tokens *tokenstore.Store) {
	rec, ok, err := tokens.Read(ctx)
	if err != nil || !ok {
		return
	}
	pterm.Printf("  token expires %s (in %s)\n", rec.ExpiresAt.Local().Format(time.RFC3339), time.Until(rec.ExpiresAt).Round(time.Second))
}

// watchStatus renders live session state in a pterm area until ctx is cancelled.
func watchStatus(ctx context.Context, a *app, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cursor.Hide()
	defer cursor.Show()
	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return err
	}
	defer func() { _ = area.Stop() }()

	var mu sync.Mutex
	render := func(st session.State) {
		mu.Lock()
		defer mu.Unlock()
		line := describeState(st)
		if rec, ok, err := a.tokens.Read(ctx); err == nil && ok && st.IsAuthenticated {
			line += fmt.Sprintf("  (token expires in %s)", time.Until(rec.ExpiresAt).Round(time.Second))
		}
		area.Update(line + "\n" + pterm.Gray("press Ctrl+C to stop"))
	}

	unsubscribe := a.session.Subscribe(render)
	defer unsubscribe()
	render(a.session.GetState())
	a.session.Start(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			checkAndRefresh(ctx, a)
			render(a.session.GetState())
		}
	}
}

// checkAndRefresh runs a silent refresh when a signed-in session's token is no
// longer valid. The refresher's events drive the session controller.
func checkAndRefresh(ctx context.Context, a *app) {
	if !a.session.GetState().IsAuthenticated {
		return
	}
	valid, err := a.tokens.IsValid(ctx)
	if err != nil {
		a.logger.Debug().Err(err).Msg("validity check failed")
		return
	}
	if valid {
		return
	}
	if _, err := a.refresher.Refresh(ctx); err != nil {
		a.logger.Debug().Err(err).Msg("silent refresh failed")
	}
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Keep running and refresh the token before it expires")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", 30*time.Second, "How often --watch checks the token")
	rootCmd.AddCommand(statusCmd)
}
