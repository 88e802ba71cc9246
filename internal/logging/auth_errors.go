// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	apperrors "neardeal/cli/internal/errors"
)

// FormatAuthError formats an auth subsystem error in a user-friendly way.
// Raw storage and network text only appears in the technical details line, masked.
func FormatAuthError(err error) string {
	if err == nil {
		return ""
	}

	var builder strings.Builder

	switch apperrors.KindOf(err) {
	case apperrors.StorageUnavailable:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Credential storage unavailable"))
		builder.WriteString("\n\n")
		builder.WriteString("Your sign-in could not be saved or read.\n")
		builder.WriteString("This usually happens when:\n")
		builder.WriteString("  • The OS keychain is locked or denied access\n")
		builder.WriteString("  • The configured storage backend is offline\n")
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please try again"))

	case apperrors.Unauthorized, apperrors.RefreshFailed:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Session expired"))
		builder.WriteString("\n\n")
		builder.WriteString("Your session could not be renewed.\n")
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please run 'neardeal login' and try again"))

	case apperrors.ConfigInvalid:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Invalid configuration"))
		builder.WriteString("\n\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Check config.json or the NEARDEAL_* environment variables"))

	default:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Something went wrong"))
	}

	builder.WriteString("\n\n")
	builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))

	return builder.String()
}

// PresentAuthError displays a formatted auth error.
func PresentAuthError(err error) {
	fmt.Println()
	fmt.Println(FormatAuthError(err))
	fmt.Println()
}
