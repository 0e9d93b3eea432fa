package cmd

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// promptCredential reads a credential from the terminal without echoing it,
// falling back to a visible line read when stdin is not a TTY (e.g. piped
// input in scripts and tests).
func promptCredential(label string) (string, error) {
	fmt.Fprint(Out(), label)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(Out())
		if err != nil {
			return "", fmt.Errorf("read credential: %w", err)
		}
		return string(b), nil
	}
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return line, nil
}

// unixToString formats a Unix timestamp for CLI output.
func unixToString(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
