// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetExpiredEntryIsRemoved(t *testing.T) {
	c := New(time.Minute, 10)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("k", map[string]any{"status": "granted"})
	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh entry should be a hit")
	}

	now = now.Add(time.Minute + time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry older than TTL should be a miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry still stored, Len = %d", c.Len())
	}
}

func TestPutEvictsOldestInserted(t *testing.T) {
	c := New(time.Hour, 3)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), map[string]any{"n": i})
		now = now.Add(time.Second)
	}
	c.Put("k4", map[string]any{"n": 4})

	if _, ok := c.Get("k1"); ok {
		t.Error("oldest-inserted entry k1 should have been evicted")
	}
	for _, k := range []string{"k2", "k3", "k4"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %s should have survived eviction", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestPutPurgesExpiredBeforeEvicting(t *testing.T) {
	c := New(time.Minute, 2)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("old", map[string]any{"n": 1})
	now = now.Add(2 * time.Minute)
	c.Put("a", map[string]any{"n": 2})
	c.Put("b", map[string]any{"n": 3})

	// "old" was expired when "b" arrived, so "a" must not have been evicted.
	if _, ok := c.Get("a"); !ok {
		t.Error("live entry evicted although an expired one was available to purge")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("fresh entry missing")
	}
}

func TestReinsertMovesToNewestSlot(t *testing.T) {
	c := New(time.Hour, 2)
	c.Put("a", map[string]any{"n": 1})
	c.Put("b", map[string]any{"n": 2})
	c.Put("a", map[string]any{"n": 3})
	c.Put("c", map[string]any{"n": 4})

	// "b" is now the oldest insertion and should have been evicted.
	if _, ok := c.Get("b"); ok {
		t.Error("re-inserted key kept its old FIFO slot")
	}
	if got, ok := c.Get("a"); !ok || got["n"] != 3 {
		t.Errorf("re-inserted entry = %v, want refreshed value", got)
	}
}

func TestClear(t *testing.T) {
	c := New(time.Hour, 10)
	c.Put("a", map[string]any{"n": 1})
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
}

func TestCacheable(t *testing.T) {
	tests := []struct {
		name        string
		success     bool
		environment string
		want        bool
	}{
		{"successful development call", true, "development", true},
		{"successful staging call", true, "staging", true},
		{"successful production call", true, "production", false},
		{"failed development call", false, "development", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cacheable(tt.success, tt.environment); got != tt.want {
				t.Errorf("Cacheable(%t, %q) = %t, want %t", tt.success, tt.environment, got, tt.want)
			}
		})
	}
}

func TestKeyStripsSecrets(t *testing.T) {
	a := Key(map[string]any{
		"clientId":     "acme",
		"clientSecret": "sk_live_1",
		"environment":  "staging",
	})
	b := Key(map[string]any{
		"clientId":     "acme",
		"clientSecret": "sk_live_2",
		"environment":  "staging",
	})
	if a != b {
		t.Error("keys differ although the inputs differ only in a secret field")
	}

	c := Key(map[string]any{
		"clientId":    "other",
		"environment": "staging",
	})
	if a == c {
		t.Error("keys collide although non-secret fields differ")
	}
}

func TestKeyStripsNestedSecrets(t *testing.T) {
	a := Key(map[string]any{
		"environment": "staging",
		"grant":       map[string]any{"scope": "cases.read", "refreshToken": "rt-1"},
	})
	b := Key(map[string]any{
		"environment": "staging",
		"grant":       map[string]any{"scope": "cases.read", "refreshToken": "rt-2"},
	})
	if a != b {
		t.Error("nested secret field leaked into the key")
	}
}

func TestStripSecretsFieldNames(t *testing.T) {
	stripped := StripSecrets(map[string]any{
		"clientId":      "acme",
		"clientSecret":  "x",
		"password":      "x",
		"access_token":  "x",
		"api_key":       "x",
		"authorization": "x",
		"environment":   "staging",
	})
	if len(stripped) != 2 {
		t.Fatalf("stripped record has %d fields, want 2: %v", len(stripped), stripped)
	}
	if _, ok := stripped["clientId"]; !ok {
		t.Error("clientId should survive stripping")
	}
	if _, ok := stripped["environment"]; !ok {
		t.Error("environment should survive stripping")
	}
}

func TestPutStripsSecretsFromStoredValue(t *testing.T) {
	c := New(time.Minute, 4)
	c.Put("k", map[string]any{
		"accessToken": "tok-secret",
		"status":      "granted",
		"case":        map[string]any{"number": "C-1", "apiKey": "k-9"},
	})

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected a hit")
	}
	if _, present := got["accessToken"]; present {
		t.Error("accessToken survived Put")
	}
	if got["status"] != "granted" {
		t.Errorf("status = %v, want granted", got["status"])
	}
	sub, ok := got["case"].(map[string]any)
	if !ok {
		t.Fatalf("case sub-record missing: %v", got)
	}
	if _, present := sub["apiKey"]; present {
		t.Error("nested apiKey survived Put")
	}
	if sub["number"] != "C-1" {
		t.Errorf("case.number = %v, want C-1", sub["number"])
	}
}
