// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the credrelay application.
// It implements subcommands for credential operations, token certification, and
// vault management using the Cobra CLI framework. The package handles command
// parsing, execution, and provides a rich terminal UI with spinners and live
// realtime-update areas.
package cmd

import (
	"context"
	"fmt"
	"os"

	"seedfast/credrelay/internal/config"
	"seedfast/credrelay/internal/discovery"
	"seedfast/credrelay/internal/service"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	diagnostics bool
	flagCompute string
	flagEnv     string
)

// rootCmd represents the base command when called without any subcommands.
// It serves as the entry point for the credrelay application.
var rootCmd = &cobra.Command{
	Use:           "credrelay",
	Short:         "Relay credential operations to an isolated compute module",
	Long:          `Credrelay is a command-line tool that relays credential exchanges and token certifications to an isolated compute module hosted by the credrelay service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Enable verbose diagnostics for all modules if --diagnostics is set
		// (or persisted in the config file).
		if diagnostics {
			os.Setenv("CREDRELAY_VERBOSE", "1")
			return
		}
		if cfg, err := config.Load(); err == nil && cfg.Diagnostics {
			diagnostics = true
			os.Setenv("CREDRELAY_VERBOSE", "1")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			ctx := context.Background()
			// Fetch the endpoints document from the server
			doc, err := discovery.Endpoints(ctx)
			if err != nil {
				return err
			}

			svc := service.New(doc.HTTPBaseURL(), doc.HTTP)
			serviceVersion, err := svc.GetVersion(ctx)
			if err != nil {
				serviceVersion = "unknown"
			}

			fmt.Printf("credrelay %s\nservice %s\n", Version, serviceVersion)

			// Check for CLI updates
			latestCLIVersion, err := svc.GetCLIVersion(ctx)
			if err == nil && latestCLIVersion != "" && latestCLIVersion != Version {
				fmt.Println()
				fmt.Println("┌──────────────────────────────────────────────────────────┐")
				fmt.Printf("│ ⚠️  A new version of credrelay is available: %-10s │\n", latestCLIVersion)
				fmt.Println("│                                                          │")
				fmt.Println("│ To update, run:                                          │")
				fmt.Println("│   brew upgrade argon-it/tap/credrelay                    │")
				fmt.Println("└──────────────────────────────────────────────────────────┘")
			}

			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI and service version information")
	rootCmd.PersistentFlags().BoolVar(&diagnostics, "diagnostics", false, "Show technical failure details and debug output")
	rootCmd.PersistentFlags().StringVar(&flagCompute, "compute", "", "Compute module address (host:port), overriding config and discovery")
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "Target environment tier (development, staging, production)")
}
