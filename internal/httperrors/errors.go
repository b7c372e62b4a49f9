// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns low-level failures on the plain HTTP surface
// (endpoint discovery, version and health probes) into terminal guidance.
// Failures on the compute stream go through the classifier instead.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"seedfast/credrelay/internal/logging"
)

// failureKind buckets a network failure for presentation.
type failureKind int

const (
	kindGeneric failureKind = iota
	kindTimeout
	kindDNS
	kindRefused
	kindTLS
	kindServer
)

// FormatNetworkError prints terminal guidance for err and returns it wrapped
// for callers that log or propagate. context reads as a gerund phrase, e.g.
// "fetching the endpoints document".
func FormatNetworkError(err error, context string) error {
	if err == nil {
		return nil
	}
	present(kindOf(err), context, err)
	return fmt.Errorf("network error: %w", err)
}

// kindOf inspects the error chain first and falls back to message markers.
func kindOf(err error) failureKind {
	lower := strings.ToLower(err.Error())

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return kindTimeout
	}
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return kindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return kindDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return kindRefused
	}
	if strings.Contains(lower, "connection refused") {
		return kindRefused
	}

	for _, marker := range []string{"tls", "ssl", "certificate", "handshake"} {
		if strings.Contains(lower, marker) {
			return kindTLS
		}
	}

	serverMarkers := []string{
		"500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
	}
	for _, marker := range serverMarkers {
		if strings.Contains(lower, marker) {
			return kindServer
		}
	}

	return kindGeneric
}

// present prints the headline and hints for one failure kind. Unrecognized
// failures additionally surface abbreviated, masked detail through the debug
// printer.
func present(kind failureKind, context string, err error) {
	headline, hints, closing := guidance(kind)

	pterm.Printf("%s while %s\n", headline, context)
	pterm.Println()
	for _, line := range hints {
		pterm.Println(line)
	}
	if closing != "" {
		pterm.Println()
		pterm.Println(closing)
	}
	if kind == kindGeneric {
		pterm.Println()
		pterm.Debug.Printf("Technical details: %s\n", logging.Mask(truncate(err.Error(), 100)))
	}
	pterm.Println()
}

func guidance(kind failureKind) (headline string, hints []string, closing string) {
	switch kind {
	case kindTimeout:
		return "⏱️  Connection timeout", []string{
			"The endpoint took too long to respond. This could mean:",
			"  • Slow internet connection",
			"  • The service is under heavy load",
			"  • A firewall is delaying the connection",
		}, "Please try again in a few moments."

	case kindDNS:
		return "🌐 Cannot resolve server address", []string{
			"Unable to look up seedfa.st. Please check:",
			"  • Your internet connection is working",
			"  • DNS settings are correct",
			"  • No DNS-level blocking (corporate firewall, parental controls)",
		}, ""

	case kindRefused:
		return "🚫 Connection refused", []string{
			"The endpoint is not accepting connections. This could mean:",
			"  • The service is temporarily down",
			"  • A firewall is blocking the connection",
			"  • Wrong server address or port",
		}, "Please try again later or contact support."

	case kindTLS:
		return "🔒 Secure connection failed", []string{
			"Cannot establish a secure HTTPS connection. This could mean:",
			"  • SSL/TLS certificate issue",
			"  • A network proxy interfering with HTTPS",
			"  • An incorrect system clock",
		}, "Check your system date and time and any proxy settings."

	case kindServer:
		return "⚠️  Server error", []string{
			"The credrelay service encountered an internal error.",
			"This is not a problem with your setup; the issue is on our end.",
			"  • The service team has been notified",
			"  • Please try again in a few minutes",
		}, ""
	}

	return "❌ Cannot connect to the credrelay service", []string{
		"Please check:",
		"  • Your internet connection",
		"  • Whether seedfa.st is accessible from your network",
		"  • Firewall settings that might block HTTPS requests",
	}, ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
