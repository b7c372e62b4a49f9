// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides utilities for secure logging and error presentation.
// It includes functions for masking sensitive information in log messages and
// formatting classified errors for user-friendly display while protecting
// credentials and secrets.
//
// The package helps ensure that sensitive data like client secrets, tokens,
// and API keys are not accidentally exposed in logs or error messages shown
// to users.
package logging

import (
	"regexp"
)

var (
	rePassword  = regexp.MustCompile(`(?i)(password=)([^\s;]+)`)
	reToken     = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reSecret    = regexp.MustCompile(`(?i)(client_secret=|clientsecret=|secret=)([^\s;]+)`)
	reAPIKey    = regexp.MustCompile(`(?i)(apikey=|api_key=)([^\s;]+)`)
	reJSONField = regexp.MustCompile(`(?i)("(?:client_?secret|access_?token|refresh_?token|password|api_?key)"\s*:\s*")([^"]*)(")`)
)

// Mask replaces sensitive values in the input string with "***".
// Both key=value pairs and JSON-encoded credential fields are covered.
func Mask(s string) string {
	out := s
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reSecret.ReplaceAllString(out, "$1***")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	out = reJSONField.ReplaceAllString(out, "$1***$3")
	return out
}
