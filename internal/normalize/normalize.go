// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package normalize converts heterogeneous raw compute payloads into
// canonical typed records. Each logical field is read through an ordered
// list of accessor spellings with a documented default; a nested sub-record
// that cannot be read as an object degrades to its zero value without
// aborting the rest of the result. Repeated identical payloads within a
// session are served from a bounded memo.
package normalize

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"seedfast/credrelay/internal/progress"
)

// DefaultMemoLimit bounds the number of memoized payloads.
const DefaultMemoLimit = 32

// Normalizer maps raw worker payloads onto canonical records.
type Normalizer struct {
	mu    sync.Mutex
	memo  map[string]any
	order []string
	limit int
	now   func() time.Time
}

// New creates a normalizer with the default memo bound.
func New() *Normalizer {
	return &Normalizer{
		memo:  make(map[string]any),
		limit: DefaultMemoLimit,
		now:   time.Now,
	}
}

// Process shapes a raw credential-exchange payload.
func (n *Normalizer) Process(raw map[string]any) ProcessResult {
	if cached, ok := n.lookup("process", raw); ok {
		return cached.(ProcessResult)
	}
	out := ProcessResult{
		AccessToken: firstString(raw, "accessToken", "access_token", "token"),
		TokenType:   firstString(raw, "tokenType", "token_type"),
		Scope:       firstString(raw, "scope", "scopes"),
		Environment: firstString(raw, "environment", "env", "tier"),
		ExpiresIn:   firstInt(raw, "expiresIn", "expires_in", "ttl"),
		IssuedAt:    n.timeOrNow(raw, "issuedAt", "issued_at", "timestamp", "createdAt", "created_at"),
	}
	if sub, ok := firstMap(raw, "case", "caseRecord", "case_record"); ok {
		out.Case = n.caseRecord(sub)
	}
	n.store("process", raw, out)
	return out
}

// Certify shapes a raw token-certification payload.
func (n *Normalizer) Certify(raw map[string]any) CertifyResult {
	if cached, ok := n.lookup("certify", raw); ok {
		return cached.(CertifyResult)
	}
	out := CertifyResult{
		Valid:       firstBool(raw, "valid", "isValid", "active"),
		TokenKind:   firstString(raw, "tokenKind", "token_kind", "kind"),
		Subject:     firstString(raw, "subject", "sub"),
		Scope:       firstString(raw, "scope", "scopes"),
		CertifiedAt: n.timeOrNow(raw, "certifiedAt", "certified_at", "checkedAt", "timestamp"),
	}
	n.store("certify", raw, out)
	return out
}

// Health shapes a raw health-report payload.
func (n *Normalizer) Health(raw map[string]any) HealthResult {
	if cached, ok := n.lookup("health", raw); ok {
		return cached.(HealthResult)
	}
	out := HealthResult{
		Status:        firstString(raw, "status", "state", "health"),
		Version:       firstString(raw, "version", "moduleVersion", "module_version"),
		UptimeSeconds: firstInt(raw, "uptimeSeconds", "uptime_seconds", "uptime"),
		CheckedAt:     n.timeOrNow(raw, "checkedAt", "checked_at", "timestamp"),
	}
	n.store("health", raw, out)
	return out
}

// Update shapes a raw realtime payload. Updates carry their own ids and are
// not memoized.
func (n *Normalizer) Update(raw map[string]any) progress.Update {
	ts, ok := firstTime(raw, "timestamp", "time", "at")
	if !ok {
		ts = n.now()
	}
	return progress.Update{
		ID:        firstString(raw, "id", "updateId", "update_id"),
		Timestamp: ts,
		Step:      firstString(raw, "step", "stage", "phase"),
		Message:   firstString(raw, "message", "msg", "detail"),
		Level:     normalizeLevel(firstString(raw, "level", "severity")),
	}
}

// ClearMemo drops every memoized payload.
func (n *Normalizer) ClearMemo() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.memo = make(map[string]any)
	n.order = nil
}

func (n *Normalizer) caseRecord(raw map[string]any) CaseRecord {
	return CaseRecord{
		Number:    firstString(raw, "number", "caseNumber", "case_number", "id"),
		Status:    firstString(raw, "status", "state"),
		Subject:   firstString(raw, "subject", "title", "summary"),
		UpdatedAt: n.timeOrNow(raw, "updatedAt", "updated_at", "modifiedAt", "lastModified"),
	}
}

func (n *Normalizer) timeOrNow(raw map[string]any, keys ...string) time.Time {
	if t, ok := firstTime(raw, keys...); ok {
		return t
	}
	return n.now()
}

func normalizeLevel(s string) string {
	switch strings.ToLower(s) {
	case "warning", "warn":
		return progress.LevelWarning
	case "error", "fatal":
		return progress.LevelError
	default:
		return progress.LevelInfo
	}
}

func (n *Normalizer) lookup(kind string, raw map[string]any) (any, bool) {
	key, ok := memoKey(kind, raw)
	if !ok {
		return nil, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.memo[key]
	return v, ok
}

func (n *Normalizer) store(kind string, raw map[string]any, result any) {
	key, ok := memoKey(kind, raw)
	if !ok {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.memo[key]; exists {
		n.memo[key] = result
		return
	}
	if len(n.order) >= n.limit {
		oldest := n.order[0]
		n.order = n.order[1:]
		delete(n.memo, oldest)
	}
	n.memo[key] = result
	n.order = append(n.order, key)
}

// memoKey builds the structural key for raw. Map keys sort during JSON
// encoding, so equal payloads share a key regardless of construction order.
func memoKey(kind string, raw map[string]any) (string, bool) {
	data, err := json.Marshal(raw)
	if err != nil {
		return "", false
	}
	return kind + ":" + string(data), true
}
