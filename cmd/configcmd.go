// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strconv"

	"seedfast/credrelay/internal/config"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// configCmd groups the non-secret settings subcommands. Secrets never live
// in the config file; see the credentials command for those.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage non-secret settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		addr := cfg.ComputeAddress
		if addr == "" {
			addr = "(resolved via discovery)"
		}
		pterm.Printf("compute-address: %s\n", addr)
		pterm.Printf("environment:     %s\n", cfg.Environment)
		pterm.Printf("diagnostics:     %t\n", cfg.Diagnostics)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one setting (compute-address, environment, diagnostics)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		key, value := args[0], args[1]
		switch key {
		case "compute-address":
			cfg.ComputeAddress = value
		case "environment":
			cfg.Environment = value
		case "diagnostics":
			on, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("diagnostics takes true or false, got %q", value)
			}
			cfg.Diagnostics = on
		default:
			return fmt.Errorf("unknown setting %q (expected compute-address, environment, or diagnostics)", key)
		}

		if err := config.Save(cfg); err != nil {
			return err
		}
		pterm.Printf("✅ %s updated\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
