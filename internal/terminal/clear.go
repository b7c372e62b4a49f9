// Package terminal provides small ANSI helpers for cleaning up prompt lines.
package terminal

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/term"
)

// ClearPrompt erases an answered prompt from the terminal: the prompt text,
// the user's typed reply, and the blank line their Enter left behind. The
// erase is width-aware, so a prompt that wrapped across several terminal
// lines is removed completely.
func ClearPrompt(prompt, reply string) {
	width := 80 // fallback when the size probe fails
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	chars := utf8.RuneCountInString(prompt) + utf8.RuneCountInString(reply)
	lines := (chars + width - 1) / width
	if lines < 1 {
		lines = 1
	}

	// After Enter the cursor sits on a fresh line below the input, so one
	// extra line is cleared on top of the wrapped prompt lines.
	for i := 0; i <= lines; i++ {
		fmt.Print("\r\x1b[2K")
		if i < lines {
			fmt.Print("\x1b[1A")
		}
	}
}
