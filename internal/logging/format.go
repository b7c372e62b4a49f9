// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"seedfast/credrelay/internal/classify"
)

// FormatClassified formats a classified failure in a user-friendly way.
// The fixed category message is always shown; the raw technical detail is
// appended only when diagnostic mode is on.
func FormatClassified(c *classify.Classified, diagnostic bool) string {
	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(titleFor(c.Category)))
	builder.WriteString("\n\n")
	builder.WriteString(c.UserMessage)
	builder.WriteString("\n")

	switch c.Category {
	case classify.Network:
		builder.WriteString("This usually happens when:\n")
		builder.WriteString("  • Your internet connection was disrupted\n")
		builder.WriteString("  • The compute service is unreachable from your network\n")
		builder.WriteString("  • A firewall or proxy closed the connection\n")

	case classify.WASMTimeout:
		builder.WriteString("This could be due to:\n")
		builder.WriteString("  • Slow or unstable internet connection\n")
		builder.WriteString("  • The compute module taking too long to respond\n")

	case classify.WASMInitialization:
		builder.WriteString("This could mean:\n")
		builder.WriteString("  • The module binary could not be fetched\n")
		builder.WriteString("  • The service is being updated or restarted\n")

	case classify.Authentication:
		builder.WriteString("To fix this:\n")
		builder.WriteString("  • Run 'credrelay credentials set' to store fresh credentials\n")
		builder.WriteString("  • Your client secret or API key may have been rotated\n")

	case classify.TokenRefresh:
		builder.WriteString("This could mean:\n")
		builder.WriteString("  • The session token expired mid-operation\n")
		builder.WriteString("  • The renewal was interrupted\n")
	}

	builder.WriteString("\n")

	if c.Category == classify.Authentication {
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please run 'credrelay credentials set' and try again"))
	} else {
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please run the command again"))
	}
	builder.WriteString("\n")

	if diagnostic && strings.TrimSpace(c.TechnicalDetails) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(c.TechnicalDetails)))
	}

	return builder.String()
}

// titleFor picks the headline for a failure category.
func titleFor(cat classify.Category) string {
	switch cat {
	case classify.Network:
		return "Connection Lost"
	case classify.Authentication, classify.TokenRefresh:
		return "Authentication Problem"
	case classify.Validation:
		return "Invalid Input"
	case classify.WASMInitialization:
		return "Module Startup Failed"
	}
	return "Operation Failed"
}

// PresentClassified displays a formatted classified failure.
func PresentClassified(c *classify.Classified, diagnostic bool) {
	fmt.Println()
	fmt.Println(FormatClassified(c, diagnostic))
	fmt.Println()
}
