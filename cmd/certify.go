// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"seedfast/credrelay/internal/config"
	"seedfast/credrelay/internal/logging"
	"seedfast/credrelay/internal/relay"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var certifyToken string

// certifyCmd represents the certify command for validating an issued token.
// The token is passed to the compute module, which checks it against the
// target environment and reports kind, subject, and scope.
var certifyCmd = &cobra.Command{
	Use:   "certify",
	Short: "Certify a previously issued token",
	Long: `The certify command submits a token to the compute module for certification.
The module validates the token for the target environment tier and reports
whether it is still usable, together with its kind, subject, and scope.

The token can be passed with --token or entered at the hidden prompt. Tokens
are credential material: certification results are never cached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(certifyToken)
		if token == "" {
			fmt.Print("Token: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			token = strings.TrimSpace(string(raw))
		}
		if token == "" {
			return errors.New("token is required")
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

		live := newLiveFeed("certifying")
		live.start(br.Updates())

		outcome := br.Certify(cmd.Context(), relay.CertifyInput{Token: token, Environment: env})

		live.stop()

		elapsed := time.Since(startAt).Round(time.Millisecond)
		if !outcome.Success {
			logging.PresentClassified(outcome.Error, diagnostics)
			return fmt.Errorf("certify failed (%s)", outcome.Error.Category)
		}

		res := outcome.Result
		if res.Valid {
			pterm.Println(pterm.NewStyle(pterm.FgGreen, pterm.Bold).Sprint("✓ Token is valid"))
		} else {
			pterm.Println(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("✗ Token is not valid"))
		}
		if res.TokenKind != "" {
			pterm.Printf("  Kind:         %s\n", res.TokenKind)
		}
		if res.Subject != "" {
			pterm.Printf("  Subject:      %s\n", res.Subject)
		}
		if res.Scope != "" {
			pterm.Printf("  Scope:        %s\n", res.Scope)
		}
		if !res.CertifiedAt.IsZero() {
			pterm.Printf("  Certified at: %s\n", res.CertifiedAt.Format(time.RFC3339))
		}
		pterm.Printf("  Duration:     %s\n", elapsed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(certifyCmd)
	certifyCmd.Flags().StringVar(&certifyToken, "token", "", "Token to certify (omit to enter at a hidden prompt)")
}
