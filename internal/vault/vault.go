// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package vault manages the locally configured relay credentials.
//
// Secret material (client secret, relay token) lives in the OS keychain under
// its own keys via internal/keychain; the vault state persisted here records
// only which client is configured, never the secret itself.
package vault

import (
	"encoding/json"

	"seedfast/credrelay/internal/keychain"
	"seedfast/credrelay/internal/logging"
)

// State represents persisted configuration state for the credential vault.
type State struct {
	Configured bool   `json:"configured"`
	ClientID   string `json:"client_id"`
}

// Load reads the vault state from the keychain. Missing state yields zero value.
func Load() (State, error) {
	var s State
	km, err := keychain.GetManager()
	if err != nil {
		logging.Debugf("vault: keychain unavailable: %v", err)
		return s, err
	}

	data, err := km.LoadVaultState()
	if err != nil {
		logging.Debugf("vault: load state: %v", err)
		return s, err
	}

	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s); err != nil {
		logging.Debugf("vault: decode state (%d bytes): %v", len(data), err)
		return s, err
	}

	return s, nil
}

// Save writes the vault state to the keychain.
func Save(s State) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	km, err := keychain.GetManager()
	if err != nil {
		logging.Debugf("vault: keychain unavailable: %v", err)
		return err
	}

	if err := km.SaveVaultState(b); err != nil {
		logging.Debugf("vault: save state: %v", err)
		return err
	}

	return nil
}

// Clear removes the vault state from the keychain.
func Clear() error {
	km, err := keychain.GetManager()
	if err != nil {
		return err
	}
	return km.ClearVaultState()
}
