// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"seedfast/credrelay/internal/keychain"
	"seedfast/credrelay/internal/terminal"
	"seedfast/credrelay/internal/vault"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var credentialsClearAll bool

// credentialsCmd groups the vault management subcommands.
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the client credentials and relay token",
	Long: `The credentials command manages the secrets credrelay uses: the client id and
client secret submitted to the compute module, and the relay access token
presented to the hosted compute service.

All values are stored in the OS keychain (macOS Keychain or Windows Credential
Manager); nothing secret is written to the config file.`,
}

// credentialsSetCmd prompts for the client credentials and relay token and
// stores them in the OS keychain.
var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store client credentials in the OS keychain",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		promptText := "Client ID: "
		fmt.Print(promptText)
		clientID, _ := reader.ReadString('\n')
		clientID = strings.TrimSpace(clientID)

		// Clear the prompt and user input from terminal
		terminal.ClearPrompt(promptText, clientID)

		if clientID == "" {
			return errors.New("client id is required")
		}

		clientSecret, err := readSecret("Client secret: ")
		if err != nil {
			return err
		}
		if clientSecret == "" {
			return errors.New("client secret is required")
		}

		relayToken, err := readSecret("Relay access token (Enter to keep current): ")
		if err != nil {
			return err
		}

		if err := vault.Configure(clientID, clientSecret); err != nil {
			pterm.Println("❌ Failed to save credentials securely.")
			pterm.Println("   Keychain is only supported on macOS and Windows.")
			return err
		}

		if relayToken != "" {
			km, err := keychain.GetManager()
			if err != nil {
				return err
			}
			if err := km.SaveRelayToken(relayToken); err != nil {
				pterm.Println("❌ Failed to save the relay token securely.")
				return err
			}
		}

		pterm.Printf("✅ Credentials saved for client %s\n", pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(clientID))
		pterm.Println("   You're ready to run 'credrelay process'")
		return nil
	},
}

// credentialsShowCmd displays the configured state without revealing secrets.
var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which credentials are configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := vault.Load()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system.")
			return err
		}
		if !st.Configured {
			pterm.Println("⚠️  No client credentials configured.")
			pterm.Println("   Please run: credrelay credentials set")
			return nil
		}

		pterm.Printf("Client ID:     %s\n", st.ClientID)
		pterm.Printf("Client secret: %s\n", secretStatus(func(km *keychain.Manager) (string, error) { return km.LoadClientSecret() }))
		pterm.Printf("Relay token:   %s\n", secretStatus(func(km *keychain.Manager) (string, error) { return km.LoadRelayToken() }))
		return nil
	},
}

// credentialsClearCmd removes the stored credentials. With --all it also
// removes the relay token.
var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stored credentials from the OS keychain",
	RunE: func(cmd *cobra.Command, args []string) error {
		if credentialsClearAll {
			km, err := keychain.GetManager()
			if err != nil {
				return err
			}
			if err := km.ClearAll(); err != nil {
				return err
			}
			pterm.Println("✅ All stored secrets removed.")
			return nil
		}

		if err := vault.Forget(); err != nil {
			return err
		}
		pterm.Println("✅ Client credentials removed. The relay token was kept; use --all to remove it too.")
		return nil
	},
}

// readSecret reads one hidden line from the terminal.
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// secretStatus reports whether a keychain entry holds a value, without
// printing the value.
func secretStatus(load func(km *keychain.Manager) (string, error)) string {
	km, err := keychain.GetManager()
	if err != nil {
		return "unavailable"
	}
	v, err := load(km)
	if err != nil || strings.TrimSpace(v) == "" {
		return "not configured"
	}
	return "configured (hidden)"
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsClearCmd)
	credentialsClearCmd.Flags().BoolVar(&credentialsClearAll, "all", false, "Also remove the relay access token and vault state")
}
