// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for
// credrelay. This module manages all interactions with the OS keychain or
// credential store, providing a unified interface for the client credentials
// handed to the compute module, the relay bearer token for the hosted
// service, and the serialized vault state.
//
// The package supports multiple operating systems including macOS Keychain and
// Windows Credential Manager, with thread-safe operations and proper error
// handling.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "credrelay"

// Keys used for storing secrets in the OS keychain.
const (
	KeyClientID     = "cred_client_id"
	KeyClientSecret = "cred_client_secret"
	KeyRelayToken   = "relay_access_token"
	KeyVaultState   = "vault_state"
)

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
		// Fall through to keyring library if security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}

	return &Manager{
		ring: ring,
	}, nil
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	// If already initialized successfully, return it
	if globalManager != nil {
		return globalManager, nil
	}

	// If previous initialization failed, retry
	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}

	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
// Forces use of macOS Keychain or Windows Credential Manager - no file fallback.
func openRing() (keyring.Keyring, error) {
	// Only support darwin/windows platforms
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		return nil, errors.New("secure storage not supported on this OS (macOS/Windows only)")
	}

	// Use platform-specific native backends only
	var allowedBackends []keyring.BackendType
	if runtime.GOOS == "darwin" {
		// Try macOS Keychain first, then pass (password store) as fallback
		// Pass requires 'pass' utility installed: brew install pass
		allowedBackends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.PassBackend,
		}
	} else if runtime.GOOS == "windows" {
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
	}

	// Hint prefixes where supported to minimize namespace collisions
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. On macOS 26.0+, install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}

	return ring, nil
}

// SaveClientCredentials stores the client id and secret in the OS keychain.
// This method is thread-safe.
func (m *Manager) SaveClientCredentials(clientID, clientSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Use native backend if available
	if m.backend != nil {
		if clientID != "" {
			if err := m.backend.Set(KeyClientID, clientID); err != nil {
				return err
			}
		}
		if clientSecret != "" {
			if err := m.backend.Set(KeyClientSecret, clientSecret); err != nil {
				return err
			}
		}
		return nil
	}

	// Fallback to keyring library
	if clientID != "" {
		if err := m.ring.Set(keyring.Item{Key: KeyClientID, Data: []byte(clientID)}); err != nil {
			return err
		}
	}
	if clientSecret != "" {
		if err := m.ring.Set(keyring.Item{Key: KeyClientSecret, Data: []byte(clientSecret)}); err != nil {
			return err
		}
	}
	return nil
}

// LoadClientID retrieves the client id from the keychain.
// This method is thread-safe.
func (m *Manager) LoadClientID() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		id, err := m.backend.Get(KeyClientID)
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", errors.New("empty client id")
		}
		return id, nil
	}

	it, err := m.ring.Get(KeyClientID)
	if err != nil {
		return "", err
	}
	if len(it.Data) == 0 {
		return "", errors.New("empty client id")
	}
	return string(it.Data), nil
}

// LoadClientSecret retrieves the client secret from the keychain.
// This method is thread-safe.
func (m *Manager) LoadClientSecret() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		secret, err := m.backend.Get(KeyClientSecret)
		if err != nil {
			return "", err
		}
		if secret == "" {
			return "", errors.New("empty client secret")
		}
		return secret, nil
	}

	it, err := m.ring.Get(KeyClientSecret)
	if err != nil {
		return "", err
	}
	if len(it.Data) == 0 {
		return "", errors.New("empty client secret")
	}
	return string(it.Data), nil
}

// ClearCredentials removes the client credentials from the keychain.
// This method is thread-safe.
func (m *Manager) ClearCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		_ = m.backend.Delete(KeyClientID)
		_ = m.backend.Delete(KeyClientSecret)
		return nil
	}

	_ = m.ring.Remove(KeyClientID)
	_ = m.ring.Remove(KeyClientSecret)
	return nil
}

// SaveRelayToken stores the bearer token for the hosted compute service.
// This method is thread-safe.
func (m *Manager) SaveRelayToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(KeyRelayToken, token)
	}

	return m.ring.Set(keyring.Item{Key: KeyRelayToken, Data: []byte(token)})
}

// LoadRelayToken retrieves the bearer token for the hosted compute service.
// This method is thread-safe.
func (m *Manager) LoadRelayToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		return m.backend.Get(KeyRelayToken)
	}

	it, err := m.ring.Get(KeyRelayToken)
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

// SaveVaultState stores serialized vault state in the keychain.
// This method is thread-safe.
func (m *Manager) SaveVaultState(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(KeyVaultState, string(data))
	}

	return m.ring.Set(keyring.Item{Key: KeyVaultState, Data: data})
}

// LoadVaultState retrieves serialized vault state from the keychain.
// This method is thread-safe.
func (m *Manager) LoadVaultState() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		data, err := m.backend.Get(KeyVaultState)
		if err != nil {
			return nil, err
		}
		return []byte(data), nil
	}

	it, err := m.ring.Get(KeyVaultState)
	if err != nil {
		return nil, err
	}
	return it.Data, nil
}

// ClearVaultState removes the stored vault state from the keychain.
// This method is thread-safe.
func (m *Manager) ClearVaultState() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		_ = m.backend.Delete(KeyVaultState)
		return nil
	}

	_ = m.ring.Remove(KeyVaultState)
	return nil
}

// ClearAll removes all secrets from the keychain.
// This method is thread-safe and should be used with caution.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		_ = m.backend.Delete(KeyClientID)
		_ = m.backend.Delete(KeyClientSecret)
		_ = m.backend.Delete(KeyRelayToken)
		_ = m.backend.Delete(KeyVaultState)
		return nil
	}

	_ = m.ring.Remove(KeyClientID)
	_ = m.ring.Remove(KeyClientSecret)
	_ = m.ring.Remove(KeyRelayToken)
	_ = m.ring.Remove(KeyVaultState)
	return nil
}
