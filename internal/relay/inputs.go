// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

import (
	"strings"

	"seedfast/credrelay/internal/classify"
	apperrors "seedfast/credrelay/internal/errors"
	"seedfast/credrelay/internal/normalize"
)

// ProcessInput is the caller's record for a credential exchange.
type ProcessInput struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Environment  string `json:"environment"`
	Scope        string `json:"scope,omitempty"`
	CaseNumber   string `json:"caseNumber,omitempty"`
}

func (in ProcessInput) validate() error {
	switch {
	case strings.TrimSpace(in.ClientID) == "":
		return &apperrors.ValidationError{Field: "clientId", Value: in.ClientID, Constraint: "clientId is required"}
	case strings.TrimSpace(in.ClientSecret) == "":
		return &apperrors.ValidationError{Field: "clientSecret", Constraint: "clientSecret is required"}
	case strings.TrimSpace(in.Environment) == "":
		return &apperrors.ValidationError{Field: "environment", Value: in.Environment, Constraint: "environment is required"}
	}
	return nil
}

// payload builds the request data. The cache key derives from this map after
// secret stripping, so identical non-secret fields share a key.
func (in ProcessInput) payload() map[string]any {
	p := map[string]any{
		"clientId":     in.ClientID,
		"clientSecret": in.ClientSecret,
		"environment":  in.Environment,
	}
	if in.Scope != "" {
		p["scope"] = in.Scope
	}
	if in.CaseNumber != "" {
		p["caseNumber"] = in.CaseNumber
	}
	return p
}

// CertifyInput is the caller's record for a token certification.
type CertifyInput struct {
	Token       string `json:"token"`
	Environment string `json:"environment,omitempty"`
}

func (in CertifyInput) validate() error {
	if strings.TrimSpace(in.Token) == "" {
		return &apperrors.ValidationError{Field: "token", Constraint: "token is required"}
	}
	return nil
}

func (in CertifyInput) payload() map[string]any {
	p := map[string]any{"token": in.Token}
	if in.Environment != "" {
		p["environment"] = in.Environment
	}
	return p
}

// ProcessOutcome is the typed settlement of a Process call. Validation and
// worker failures land in Error; Process itself never returns a Go error.
// A result served from the cache carries no secret fields.
type ProcessOutcome struct {
	Success bool
	Cached  bool
	Result  normalize.ProcessResult
	Error   *classify.Classified
}

// CertifyOutcome is the typed settlement of a Certify call.
type CertifyOutcome struct {
	Success bool
	Result  normalize.CertifyResult
	Error   *classify.Classified
}
