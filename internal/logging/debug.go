// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"os"
)

// Verbose reports whether debug output is enabled for this process.
func Verbose() bool {
	return os.Getenv("CREDRELAY_VERBOSE") == "1"
}

// Debugf prints a masked debug line when CREDRELAY_VERBOSE=1 is set.
// Formatting is applied before masking so interpolated secrets are covered.
func Debugf(format string, args ...any) {
	if !Verbose() {
		return
	}
	fmt.Printf("[DEBUG] %s\n", Mask(fmt.Sprintf(format, args...)))
}
