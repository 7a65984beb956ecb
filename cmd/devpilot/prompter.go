package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// huhPrompter asks the user to pick from a list in the terminal.
type huhPrompter struct{}

func (huhPrompter) Select(ctx context.Context, title string, options []string) (string, bool, error) {
	var choice string
	field := huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(options...)...).
		Value(&choice)
	err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("selection prompt failed: %w", err)
	}
	return choice, choice != "", nil
}

// decliningPrompter is used when stdin is not a terminal; every choice is declined.
type decliningPrompter struct{}

func (decliningPrompter) Select(context.Context, string, []string) (string, bool, error) {
	return "", false, nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readSecret reads a line from the terminal without echo.
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	s := string(b)
	for i := range b {
		b[i] = 0
	}
	return s, nil
}

// promptNewPassword asks for a password twice.
func promptNewPassword() (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		first, err := readSecret("Choose a password for the secrets file: ")
		if err != nil {
			return "", err
		}
		second, err := readSecret("Confirm password: ")
		if err != nil {
			return "", err
		}
		if first == "" {
			fmt.Println(styles.Error.Render("❌ Password cannot be empty."))
			continue
		}
		if first != second {
			fmt.Println(styles.Error.Render("❌ Passwords do not match. Please try again."))
			continue
		}
		return first, nil
	}
	return "", fmt.Errorf("no matching password after %d attempts", maxAttempts)
}
