// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"seedfast/credrelay/internal/config"
	"seedfast/credrelay/internal/discovery"
	"seedfast/credrelay/internal/keychain"
	"seedfast/credrelay/internal/logging"
	"seedfast/credrelay/internal/relay"
	"seedfast/credrelay/internal/vault"
	"seedfast/credrelay/internal/worker/grpchost"

	"github.com/pterm/pterm"
)

// resolveComputeAddress picks the compute host address: the --compute flag
// wins, then the config file, then the published endpoints document.
func resolveComputeAddress(ctx context.Context, cfg config.Config) (string, error) {
	if addr := strings.TrimSpace(flagCompute); addr != "" {
		return addr, nil
	}
	if addr := strings.TrimSpace(cfg.ComputeAddress); addr != "" {
		return addr, nil
	}

	doc, err := discovery.Endpoints(ctx)
	if err != nil {
		return "", err
	}
	addr := doc.RelayAddress()
	if addr == "" {
		return "", errors.New("endpoints document carries no compute relay address")
	}
	return addr, nil
}

// resolveEnvironment picks the target tier: the --env flag wins, then the
// config file, then the development default.
func resolveEnvironment(cfg config.Config) string {
	if env := strings.TrimSpace(flagEnv); env != "" {
		return env
	}
	if env := strings.TrimSpace(cfg.Environment); env != "" {
		return env
	}
	return "development"
}

// openBroker connects to the compute host and initializes the relay session.
// The returned cleanup disposes the relay and must be called exactly once.
func openBroker(ctx context.Context) (*relay.Broker, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	addr, err := resolveComputeAddress(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	token := ""
	if km, err := keychain.GetManager(); err == nil {
		if t, err := km.LoadRelayToken(); err == nil {
			token = strings.TrimSpace(t)
		}
	}
	if token == "" {
		pterm.Println("⚠️  No relay access token configured.")
		pterm.Println("   Please run: credrelay credentials set")
		return nil, nil, errors.New("no relay token; run 'credrelay credentials set' first")
	}

	logging.Debugf("session: connecting to compute host %s", addr)

	stopSpinner := startInlineSpinner(os.Stdout, "connecting to compute module", spinnerFrames, 100*time.Millisecond)
	br := relay.New(grpchost.NewClient(addr, token))
	err = br.Init(ctx)
	stopSpinner()
	if err != nil {
		pterm.Printf("❌ Failed to initialize the compute module\n")
		pterm.Println(logging.PresentError("", err))
		_ = br.Dispose(context.Background())
		return nil, nil, err
	}

	cleanup := func() {
		// Disposal runs on its own context so a canceled command still
		// settles outstanding requests.
		_ = br.Dispose(context.Background())
	}
	return br, cleanup, nil
}

// requireCredentials loads the configured client credentials, printing
// guidance when the vault is empty.
func requireCredentials() (clientID, clientSecret string, err error) {
	clientID, clientSecret, err = vault.ClientCredentials()
	if err != nil {
		if errors.Is(err, vault.ErrNotConfigured) {
			pterm.Println("⚠️  No client credentials configured.")
			pterm.Println("   Please run: credrelay credentials set")
			return "", "", err
		}
		pterm.Println("❌ Secure storage is not available on this system.")
		pterm.Println("   Keychain is only supported on macOS and Windows.")
		return "", "", err
	}
	return clientID, clientSecret, nil
}
