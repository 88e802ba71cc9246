// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the NearDeal CLI.
// It implements subcommands for signing in with a social-login provider, inspecting
// and refreshing the session, and a few helpers around the NearDeal API, using the
// Cobra CLI framework with pterm for terminal output.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"neardeal/cli/internal/backend"
	"neardeal/cli/internal/config"
	"neardeal/cli/internal/logging"
)

var (
	showVersion     bool
	storageOverride string
	apiURLOverride  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "neardeal",
	Short:         "NearDeal CLI for signing in and managing your session",
	Long:          `NearDeal is a command-line client for the NearDeal API. It signs you in with Kakao or Google, keeps the access token in secure storage, and refreshes it silently when it expires.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !showVersion {
			return cmd.Help()
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := logging.Setup(cfg.LogLevel, os.Stderr)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		api := backend.New(cfg.APIBaseURL, backend.DefaultEndpoints(), nil, logger)
		backendVersion, err := api.GetVersion(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("backend version unavailable")
			backendVersion = "unknown"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "neardeal %s\nbackend %s\n", Version, backendVersion)
		return nil
	},
}

// Execute runs the CLI application. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.PresentAuthError(err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads config.json, applies command-line overrides and validates.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if storageOverride != "" {
		cfg.Storage.Backend = storageOverride
	}
	if apiURLOverride != "" {
		cfg.APIBaseURL = apiURLOverride
	}
	return cfg, cfg.Validate()
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI and backend version information")
	rootCmd.PersistentFlags().StringVar(&storageOverride, "storage", "", "Credential storage backend (keyring, sqlite, redis, postgres, memory)")
	rootCmd.PersistentFlags().StringVar(&apiURLOverride, "api-url", "", "NearDeal API base URL")
}
