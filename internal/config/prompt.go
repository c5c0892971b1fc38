package config

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// PromptPassphrase reads a passphrase from the terminal without echoing it.
// Caller must zero the returned slice after use.
func PromptPassphrase(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run the command interactively to enter the passphrase")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("passphrase cannot be empty")
	}
	return raw, nil
}

// PromptNewPassphrase asks twice and fails when the answers differ.
func PromptNewPassphrase() ([]byte, error) {
	first, err := PromptPassphrase("Enter new passphrase: ")
	if err != nil {
		return nil, err
	}
	second, err := PromptPassphrase("Repeat passphrase: ")
	if err != nil {
		clear(first)
		return nil, err
	}
	defer clear(second)
	if subtle.ConstantTimeCompare(first, second) != 1 {
		clear(first)
		return nil, errors.New("passphrases do not match")
	}
	return first, nil
}
