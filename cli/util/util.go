// Package util provides prompt helpers for the Pakto CLI.
package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// Prompts go to stderr so piped stdout stays machine-readable.
var (
	stdin  io.Reader = os.Stdin
	prompt io.Writer = os.Stderr
)

// MaskToken masks a token for display, showing only first and last 4 characters
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

// ReadLine reads a line from stdin
func ReadLine(label string) (string, error) {
	_, _ = fmt.Fprint(prompt, label)
	return readLine(stdin)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadPassword reads a password from stdin without echoing
func ReadPassword(label string) (string, error) {
	_, _ = fmt.Fprint(prompt, label)
	password, err := term.ReadPassword(int(syscall.Stdin))
	_, _ = fmt.Fprintln(prompt) // Print newline after password input
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// ReadToken reads a secret without echo on a terminal, or as a plain line
// when stdin is piped.
func ReadToken(label string) (string, error) {
	if IsInteractive() {
		return ReadPassword(label)
	}
	token, err := readLine(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	return token, nil
}

// Confirm asks for a yes/no confirmation
func Confirm(label string, defaultYes bool) (bool, error) {
	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}

	answer, err := ReadLine(label + suffix)
	if err != nil {
		return false, err
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return defaultYes, nil
	}

	return answer == "y" || answer == "yes", nil
}

// IsInteractive returns true if stdin is a terminal
func IsInteractive() bool {
	f, ok := stdin.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
