// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package normalize

import (
	"strconv"
	"time"
)

// firstString returns the first candidate key holding a non-empty string.
func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstBool returns the first candidate key readable as a bool.
func firstBool(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}

// firstInt returns the first candidate key readable as an integer. JSON
// decoding hands numbers over as float64, so that is the common case.
func firstInt(raw map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case int64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

// firstMap returns the first candidate key holding an object.
func firstMap(raw map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := raw[k].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// firstTime returns the first candidate key readable as a timestamp.
func firstTime(raw map[string]any, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if t, ok := asTime(raw[k]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	case float64:
		return fromUnix(int64(t))
	case int64:
		return fromUnix(t)
	case int:
		return fromUnix(int64(t))
	}
	return time.Time{}, false
}

// fromUnix reads n as unix milliseconds when above 1e12, unix seconds
// otherwise. Non-positive values are rejected.
func fromUnix(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	if n > 1_000_000_000_000 {
		return time.UnixMilli(n), true
	}
	return time.Unix(n, 0), true
}
