// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package normalize

import (
	"strings"
	"time"
)

// ProcessResult is the canonical shape of a successful credential exchange.
// Missing string fields default to "", ExpiresIn to 0, IssuedAt to the time
// of normalization, and Case to its zero record.
type ProcessResult struct {
	AccessToken string     `json:"accessToken"`
	TokenType   string     `json:"tokenType"`
	Scope       string     `json:"scope"`
	Environment string     `json:"environment"`
	ExpiresIn   int        `json:"expiresIn"`
	IssuedAt    time.Time  `json:"issuedAt"`
	Case        CaseRecord `json:"case"`
}

// CaseRecord is the nested case-lookup sub-record attached to a process
// result. When the raw sub-record cannot be read as an object the whole
// record degrades to its zero value without affecting the rest of the
// result.
type CaseRecord struct {
	Number    string    `json:"number"`
	Status    string    `json:"status"`
	Subject   string    `json:"subject"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CertifyResult is the canonical shape of a token certification.
type CertifyResult struct {
	Valid       bool      `json:"valid"`
	TokenKind   string    `json:"tokenKind"`
	Subject     string    `json:"subject"`
	Scope       string    `json:"scope"`
	CertifiedAt time.Time `json:"certifiedAt"`
}

// HealthResult is the canonical shape of a compute module health report.
type HealthResult struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	UptimeSeconds int       `json:"uptimeSeconds"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// Healthy reports whether the status string denotes a healthy module.
func (h HealthResult) Healthy() bool {
	switch strings.ToLower(h.Status) {
	case "ok", "healthy", "up":
		return true
	}
	return false
}
