// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"
	"time"

	"seedfast/credrelay/internal/config"
	"seedfast/credrelay/internal/logging"
	"seedfast/credrelay/internal/normalize"
	"seedfast/credrelay/internal/relay"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	processScope string
	processCase  string
)

// processCmd represents the process command for running a credential exchange.
// It relays the configured client credentials to the compute module, renders
// realtime updates while the exchange runs, and prints the issued token and
// any attached case record on success.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a credential exchange through the compute module",
	Long: `The process command relays a credential exchange to the isolated compute module.
The client credentials stored in the vault are submitted together with the target
environment tier; the module performs the exchange and streams realtime updates
while it works.

Identical requests outside the production tier are answered from the result
cache. Cached results carry no token material; run 'credrelay clear-cache' to
force a fresh exchange.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		clientID, clientSecret, err := requireCredentials()
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		env := resolveEnvironment(cfg)

		startAt := time.Now()
		br, cleanup, err := openBroker(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Client:      ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(clientID))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Environment: ") + pterm.NewStyle(pterm.FgLightBlue).Sprint(env))
		if processScope != "" {
			pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Scope:       ") + processScope)
		}
		if processCase != "" {
			pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Case:        ") + processCase)
		}
		pterm.Println()

		live := newLiveFeed("processing")
		live.start(br.Updates())

		outcome := br.Process(cmd.Context(), relay.ProcessInput{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Environment:  env,
			Scope:        processScope,
			CaseNumber:   processCase,
		})

		live.stop()

		elapsed := time.Since(startAt).Round(time.Millisecond)
		if !outcome.Success {
			logging.PresentClassified(outcome.Error, diagnostics)
			return fmt.Errorf("process failed (%s)", outcome.Error.Category)
		}

		notifyProcessSuccess(elapsed, outcome)
		return nil
	},
}

// notifyProcessSuccess renders the completion panel for a credential exchange.
func notifyProcessSuccess(elapsed time.Duration, outcome relay.ProcessOutcome) {
	res := outcome.Result

	title := pterm.NewStyle(pterm.FgGreen, pterm.Bold).Sprint("Credential Exchange Completed")
	var b strings.Builder
	if res.AccessToken != "" {
		fmt.Fprintf(&b, "Access token: %s\n", res.AccessToken)
	} else if outcome.Cached {
		b.WriteString("Access token: (redacted in cached results)\n")
	}
	if res.TokenType != "" {
		fmt.Fprintf(&b, "Token type:   %s\n", res.TokenType)
	}
	if res.Scope != "" {
		fmt.Fprintf(&b, "Scope:        %s\n", res.Scope)
	}
	if res.Environment != "" {
		fmt.Fprintf(&b, "Environment:  %s\n", res.Environment)
	}
	if res.ExpiresIn > 0 {
		fmt.Fprintf(&b, "Expires in:   %s\n", (time.Duration(res.ExpiresIn) * time.Second).String())
	}
	if !res.IssuedAt.IsZero() {
		fmt.Fprintf(&b, "Issued at:    %s\n", res.IssuedAt.Format(time.RFC3339))
	}
	if res.Case.Number != "" {
		fmt.Fprintf(&b, "Case:         %s\n", formatCase(res.Case))
	}
	fmt.Fprintf(&b, "Duration:     %s", elapsed)
	if outcome.Cached {
		b.WriteString("\nServed from the result cache")
	}

	box := pterm.DefaultBox.WithTitle(title).WithPadding(1).Sprint(b.String())
	pterm.Println(box)
}

// formatCase renders an attached case record on one line.
func formatCase(c normalize.CaseRecord) string {
	var b strings.Builder
	b.WriteString(c.Number)
	if c.Status != "" {
		fmt.Fprintf(&b, " [%s]", c.Status)
	}
	if c.Subject != "" {
		b.WriteString(" " + c.Subject)
	}
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, " (updated %s)", c.UpdatedAt.Format("2006-01-02"))
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processScope, "scope", "", "Requested token scope")
	processCmd.Flags().StringVar(&processCase, "case", "", "Case number to attach to the exchange")
}
