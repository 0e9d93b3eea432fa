package dms

import (
	"context"

	"github.com/pharmadocs/dmsd/internal/auth"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/store"
)

// Login authenticates username/credential and issues a bearer token
// (spec.md §6 Authentication).
func (s *Service) Login(ctx context.Context, username, credential string, force bool, now int64) (*auth.Session, error) {
	return s.gate.Login(ctx, username, credential, force, now)
}

// ValidateSession reports whether token is a live session (spec.md §6
// Authentication).
func (s *Service) ValidateSession(ctx context.Context, token string, now int64) (*auth.ValidationResult, error) {
	return s.gate.ValidateSession(ctx, token, now)
}

// Logout invalidates principalID's active session (spec.md §6
// Authentication).
func (s *Service) Logout(ctx context.Context, principalID string, now int64) error {
	return s.gate.Logout(ctx, principalID, now)
}

// VerifyESignature re-checks a credential without mutating session state
// (spec.md §6 Authentication).
func (s *Service) VerifyESignature(ctx context.Context, principal *store.Principal, credential string) error {
	return s.gate.VerifyESignature(ctx, principal, credential)
}

// sessionInvalid maps a ValidationResult.Reason to the sentinel a caller
// should react to.
func sessionInvalid(reason string) error {
	switch reason {
	case "deactivated":
		return dmserr.New(dmserr.ErrDeactivated, "principal is deactivated")
	case "expired":
		return dmserr.New(dmserr.ErrSessionSuperseded, "session has expired")
	default:
		return dmserr.New(dmserr.ErrSessionSuperseded, "session is no longer valid")
	}
}
