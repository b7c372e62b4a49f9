// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import "fmt"

// PresentError renders an error for terminal display with secrets masked.
// A non-empty context is prefixed to the message.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	msg := Mask(err.Error())
	if context == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", context, msg)
}
