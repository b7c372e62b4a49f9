// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Key derives the deterministic cache key for an input record: credential
// fields are stripped, the remainder is canonically encoded (JSON with sorted
// keys), and the encoding is hashed. Secrets never reach the key.
func Key(input map[string]any) string {
	stripped := StripSecrets(input)
	b, err := json.Marshal(stripped)
	if err != nil {
		// Inputs are plain decoded JSON in practice; an unencodable value
		// still must not produce colliding keys.
		b = []byte(err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StripSecrets returns a deep copy of the record with every field whose name
// denotes a credential or secret removed. Nested records and lists are walked.
func StripSecrets(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for name, value := range input {
		if isSecretField(name) {
			continue
		}
		out[name] = stripValue(value)
	}
	return out
}

func stripValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return StripSecrets(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = stripValue(e)
		}
		return out
	}
	return value
}

// isSecretField reports whether a field name denotes credential material.
func isSecretField(name string) bool {
	lower := strings.ToLower(name)
	switch lower {
	case "authorization", "credential", "credentials", "apikey", "api_key", "passwd", "dsn":
		return true
	}
	return strings.Contains(lower, "secret") ||
		strings.Contains(lower, "password") ||
		strings.Contains(lower, "token")
}
