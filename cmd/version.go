// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

// Version is the CLI version reported by --version and compared against the
// latest release published by the service. Overridden at build time via
// -ldflags "-X seedfast/credrelay/cmd.Version=...".
var Version = "0.0.0-dev"
