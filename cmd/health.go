// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"seedfast/credrelay/internal/classify"
	"seedfast/credrelay/internal/discovery"
	"seedfast/credrelay/internal/logging"
	"seedfast/credrelay/internal/service"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// healthCmd represents the health command for probing the compute module.
// It reports module status, version, and uptime together with the observed
// round-trip latency.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the compute module health",
	RunE: func(cmd *cobra.Command, args []string) error {
		br, cleanup, err := openBroker(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		startAt := time.Now()
		res, err := br.Health(cmd.Context())
		latency := time.Since(startAt).Round(time.Millisecond)
		if err != nil {
			logging.PresentClassified(classify.Classify(err), diagnostics)
			reportServiceReachability(cmd.Context())
			return fmt.Errorf("health check failed")
		}

		if res.Healthy() {
			pterm.Println(pterm.NewStyle(pterm.FgGreen, pterm.Bold).Sprint("✓ Compute module is healthy"))
		} else {
			pterm.Println(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprintf("✗ Compute module reported status %q", res.Status))
		}
		if res.Version != "" {
			pterm.Printf("  Version:  %s\n", res.Version)
		}
		if res.UptimeSeconds > 0 {
			pterm.Printf("  Uptime:   %s\n", (time.Duration(res.UptimeSeconds) * time.Second).String())
		}
		pterm.Printf("  Latency:  %s\n", latency)
		if !res.CheckedAt.IsZero() {
			pterm.Printf("  Checked:  %s\n", res.CheckedAt.Format(time.RFC3339))
		}
		return nil
	},
}

// reportServiceReachability distinguishes a down compute module from an
// unreachable service domain after a failed module probe. A discovery failure
// prints its own guidance.
func reportServiceReachability(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc, err := discovery.Endpoints(ctx)
	if err != nil {
		return
	}
	svc := service.New(doc.HTTPBaseURL(), doc.HTTP)
	if up, err := svc.GetHealth(ctx); err == nil && up {
		pterm.Println("ℹ️  The service domain answers; the compute module itself is unavailable.")
	}
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
