// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns transport failures from the NearDeal API into
// user-facing troubleshooting messages.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"neardeal/cli/internal/logging"
)

// Class is a coarse category of network failure.
type Class int

const (
	ClassGeneric Class = iota
	ClassTimeout
	ClassDNS
	ClassRefused
	ClassTLS
	ClassServer
)

// Classify inspects err and returns its failure class.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassGeneric
	case isTimeoutError(err):
		return ClassTimeout
	case isDNSError(err):
		return ClassDNS
	case isConnectionRefusedError(err):
		return ClassRefused
	case isSSLError(err):
		return ClassTLS
	case isServerError(err.Error()):
		return ClassServer
	}
	return ClassGeneric
}

// FormatNetworkError prints troubleshooting help for err and returns it wrapped.
// action describes what the CLI was doing ("signing in"), host names the API host.
func FormatNetworkError(err error, action, host string) error {
	if err == nil {
		return nil
	}
	pterm.Println(Message(err, action, host))
	return fmt.Errorf("network error: %w", err)
}

// Message renders the troubleshooting text for err.
func Message(err error, action, host string) string {
	var b strings.Builder
	switch Classify(err) {
	case ClassTimeout:
		fmt.Fprintf(&b, "⏱️  Connection timeout while %s\n\n", action)
		b.WriteString("The server took too long to respond. Please try again in a few moments.\n")
	case ClassDNS:
		fmt.Fprintf(&b, "🌐 Cannot resolve %s while %s\n\n", host, action)
		b.WriteString("Check that your internet connection and DNS settings work.\n")
	case ClassRefused:
		fmt.Fprintf(&b, "🚫 Connection refused by %s while %s\n\n", host, action)
		b.WriteString("The service may be down, or the API address in config.json is wrong.\n")
	case ClassTLS:
		fmt.Fprintf(&b, "🔒 Secure connection to %s failed while %s\n\n", host, action)
		b.WriteString("Check your system clock and any HTTPS proxy settings.\n")
	case ClassServer:
		fmt.Fprintf(&b, "⚠️  Server error while %s\n\n", action)
		b.WriteString("The NearDeal server encountered an internal error. Please try again later.\n")
	default:
		fmt.Fprintf(&b, "❌ Cannot reach %s while %s\n\n", host, action)
		b.WriteString("Check your internet connection and firewall settings.\n")
	}

	details := logging.Mask(err.Error())
	if len(details) > 100 {
		details = details[:100] + "..."
	}
	b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + details))
	return b.String()
}

// IsNetworkError reports whether err came from the transport rather than the API.
func IsNetworkError(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate")
}

// isServerError matches the "<op> failed: 5xx" text produced by the backend client.
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, code := range []string{"failed: 500", "failed: 502", "failed: 503", "failed: 504"} {
		if strings.Contains(lower, code) {
			return true
		}
	}
	return strings.Contains(lower, "internal server error") || strings.Contains(lower, "bad gateway")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
