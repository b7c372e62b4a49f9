// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package vault

import (
	"errors"
	"strings"

	"seedfast/credrelay/internal/keychain"
)

// ErrNotConfigured is returned when credentials are requested before any
// have been stored.
var ErrNotConfigured = errors.New("no credentials configured; run 'credrelay credentials set' first")

// Configure stores the client credentials in the OS keychain and records the
// configured client in the vault state.
func Configure(clientID, clientSecret string) error {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" {
		return errors.New("client id must not be empty")
	}
	if clientSecret == "" {
		return errors.New("client secret must not be empty")
	}

	km, err := keychain.GetManager()
	if err != nil {
		return err
	}
	if err := km.SaveClientCredentials(clientID, clientSecret); err != nil {
		return err
	}

	return Save(State{Configured: true, ClientID: clientID})
}

// ClientCredentials loads the stored client id and secret from the keychain.
func ClientCredentials() (clientID, clientSecret string, err error) {
	st, err := Load()
	if err != nil {
		return "", "", err
	}
	if !st.Configured {
		return "", "", ErrNotConfigured
	}

	km, err := keychain.GetManager()
	if err != nil {
		return "", "", err
	}
	clientID, err = km.LoadClientID()
	if err != nil {
		return "", "", err
	}
	clientSecret, err = km.LoadClientSecret()
	if err != nil {
		return "", "", err
	}
	return clientID, clientSecret, nil
}

// Forget removes the stored credentials and clears the vault state.
func Forget() error {
	km, err := keychain.GetManager()
	if err != nil {
		return err
	}
	if err := km.ClearCredentials(); err != nil {
		return err
	}
	return Clear()
}
