// session.go persists the bearer token issued by Login between CLI
// invocations, the same way the teacher persists per-deployment config
// under ~/.dmsd.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pharmadocs/dmsd/internal/store"
)

// sessionPath returns the file a logged-in token is cached in.
func sessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".dmsd", "session"), nil
}

// saveSessionToken persists token for later commands to pick up.
func saveSessionToken(token string) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return os.WriteFile(path, []byte(strings.TrimSpace(token)), 0o600)
}

// clearSessionToken removes the cached token, e.g. after Logout.
func clearSessionToken() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// loadSessionToken returns the cached token, preferring the DMSD_TOKEN
// environment variable when set.
func loadSessionToken() (string, error) {
	if env := os.Getenv("DMSD_TOKEN"); env != "" {
		return env, nil
	}
	path, err := sessionPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("not logged in: run `dmsd login` first")
		}
		return "", fmt.Errorf("read session token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// currentPrincipal resolves the cached session token against the store,
// the first step nearly every subcommand takes.
func currentPrincipal(ctx context.Context) (*store.Principal, error) {
	token, err := loadSessionToken()
	if err != nil {
		return nil, err
	}
	s, err := serviceForCmd()
	if err != nil {
		return nil, err
	}
	return s.ResolvePrincipal(ctx, token, now())
}

// now returns the current Unix timestamp; isolated so commands read a
// single consistent clock call per invocation.
func now() int64 {
	return time.Now().Unix()
}
