// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"seedfast/credrelay/internal/xdg"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	// ComputeAddress is the hosted compute service. Empty means the address
	// is resolved through endpoint discovery.
	ComputeAddress string `json:"compute_address"`
	// Environment is the default trust tier for operations.
	Environment string `json:"environment"`
	// Diagnostics surfaces raw technical detail alongside user messages.
	Diagnostics bool `json:"diagnostics"`
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Defaults (credentials come from the keychain, not config)
			c.Environment = "development"
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
