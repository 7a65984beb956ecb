// Command devpilot is a chat-driven coding assistant that routes messages to commands and
// drives test-first workflows against a language model.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("❌ "+err.Error()))
		os.Exit(1)
	}
}
