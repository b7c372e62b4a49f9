// Package main is the entry point for the credrelay application.
// It relays credential operations to an isolated compute module.
package main

import (
	"seedfast/credrelay/cmd"
)

// main is the entry point for the credrelay application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
