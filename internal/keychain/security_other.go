// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !darwin

package keychain

import "errors"

var errSecurityUnsupported = errors.New("security(1) backend requires macOS")

// securityBackend exists on non-darwin builds only so the manager compiles;
// construction always fails and the keyring backends take over.
type securityBackend struct{}

func newSecurityBackend() (*securityBackend, error) {
	return nil, errSecurityUnsupported
}

func (s *securityBackend) Set(key, value string) error { return errSecurityUnsupported }

func (s *securityBackend) Get(key string) (string, error) { return "", errSecurityUnsupported }

func (s *securityBackend) Delete(key string) error { return errSecurityUnsupported }
