// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"seedfast/credrelay/internal/classify"
	"seedfast/credrelay/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// clearCacheCmd represents the clear-cache command. It drops the local result
// cache and asks the compute module to discard any scratch state, forcing the
// next identical exchange to run fresh.
var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clear cached credential results",
	RunE: func(cmd *cobra.Command, args []string) error {
		br, cleanup, err := openBroker(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := br.ClearCache(cmd.Context()); err != nil {
			logging.PresentClassified(classify.Classify(err), diagnostics)
			return fmt.Errorf("clear cache failed")
		}

		pterm.Println("✅ Result cache cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCacheCmd)
}
