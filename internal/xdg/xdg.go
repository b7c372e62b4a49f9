// Package xdg resolves XDG Base Directory paths for credrelay. Directories
// are created on first use with private permissions, and the traditional
// dot-directory fallbacks apply when the XDG variables are unset.
package xdg

import (
	"os"
	"path/filepath"
)

const appDir = "credrelay"

// ConfigDir returns the per-user config directory, ~/.config/credrelay when
// XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the per-user state directory, ~/.local/state/credrelay
// when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// ensure resolves the base directory from the environment or the home-rooted
// fallback, then creates the credrelay subdirectory with 0700.
func ensure(envVar, fallback string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
