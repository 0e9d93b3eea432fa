// Package auth implements the session and auth gate (spec.md §4.2): Login
// with single-active-session enforcement, session validation, logout, and
// e-signature verification ahead of every lifecycle transition.
//
// Credential hashing uses argon2id (github.com/alexedwards/argon2id),
// grounded on the pack's Sentinel-Gate example, which carries the same
// dependency for principal credential verification.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/metrics"
	"github.com/pharmadocs/dmsd/internal/store"
)

// DefaultSessionTTL is the session lifetime used when a Gate is built
// without an explicit override.
const DefaultSessionTTL = 60 * time.Minute

// Session is the logical content of a successful login: the opaque bearer
// token plus the role snapshot taken at issuance.
type Session struct {
	Token       string
	PrincipalID string
	Username    string
	Roles       []store.Role
	IssuedAt    int64
	ExpiresAt   int64
}

// Gate is the session and auth gate, backed by a Store.
type Gate struct {
	store      store.Store
	sessionTTL time.Duration
}

func New(s store.Store) *Gate {
	return &Gate{store: s, sessionTTL: DefaultSessionTTL}
}

// WithSessionTTL overrides the session lifetime a Gate issues tokens with,
// for deployments that configure session.ttl_minutes away from the default.
func (g *Gate) WithSessionTTL(ttl time.Duration) *Gate {
	g.sessionTTL = ttl
	return g
}

// HashCredential produces an argon2id hash suitable for storage in
// Principal.CredentialHash.
func HashCredential(plaintext string) (string, error) {
	return argon2id.CreateHash(plaintext, argon2id.DefaultParams)
}

// Login verifies username/credential and, on success, issues a bearer
// token. If the principal already holds a non-expired active_session_token,
// login fails with SessionConflict unless force is true, in which case the
// previous token is invalidated (spec.md §4.2).
func (g *Gate) Login(ctx context.Context, username, credential string, force bool, now int64) (*Session, error) {
	p, err := g.store.GetPrincipalByUsername(ctx, username)
	if err != nil {
		// Never leak whether the username exists: treat NotFound the same
		// as a credential mismatch below.
		if errors.Is(err, store.ErrNotFound) {
			_ = audit.Event("LOGIN_FAILURE", "principal", username).
				Username(username).Describe("unknown username").Best(ctx, g.store, now)
			return nil, dmserr.New(dmserr.ErrInvalidCredentials, "invalid username or credential")
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	if !p.Active {
		_ = audit.Event("LOGIN_FAILURE", "principal", p.ID).
			Principal(p.ID, p.Username).Describe("deactivated principal").Best(ctx, g.store, now)
		return nil, dmserr.New(dmserr.ErrDeactivated, "principal is deactivated")
	}

	match, err := argon2id.ComparePasswordAndHash(credential, p.CredentialHash)
	if err != nil {
		return nil, fmt.Errorf("compare credential: %w", err)
	}
	if !match {
		_ = audit.Event("LOGIN_FAILURE", "principal", p.ID).
			Principal(p.ID, p.Username).Describe("invalid credential").Best(ctx, g.store, now)
		return nil, dmserr.New(dmserr.ErrInvalidCredentials, "invalid username or credential")
	}

	if p.ActiveSessionToken != nil && p.SessionExpiresAt != nil && *p.SessionExpiresAt > now && !force {
		metrics.SessionConflictsTotal.Inc()
		return nil, dmserr.New(dmserr.ErrSessionConflict, "principal already has an active session")
	}

	randomPart, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	token := p.ID + "." + randomPart
	expiresAt := now + int64(g.sessionTTL.Seconds())

	if err := g.store.SetSession(ctx, p.ID, &token, &now, &expiresAt, &now); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	_ = audit.Event("LOGIN_SUCCESS", "principal", p.ID).
		Principal(p.ID, p.Username).Describe("login succeeded").
		Detail("forced", force).Best(ctx, g.store, now)

	return &Session{
		Token:       token,
		PrincipalID: p.ID,
		Username:    p.Username,
		Roles:       p.Roles,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidationResult is the outcome of ValidateSession: Valid is true iff the
// token is live; otherwise Reason explains why not.
type ValidationResult struct {
	Valid     bool
	Reason    string
	Principal *store.Principal
}

// ValidateSession reports whether token is the principal's current,
// unexpired session. Consumers poll this at most every 30 seconds and on
// tab-focus events (spec.md §4.2); this function itself has no rate limit
// of its own.
func (g *Gate) ValidateSession(ctx context.Context, token string, now int64) (*ValidationResult, error) {
	principalID, _, ok := splitToken(token)
	if !ok {
		return &ValidationResult{Valid: false, Reason: "malformed"}, nil
	}

	p, err := g.store.GetPrincipalByID(ctx, principalID)
	if errors.Is(err, store.ErrNotFound) {
		return &ValidationResult{Valid: false, Reason: "superseded"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	if !p.Active {
		return &ValidationResult{Valid: false, Reason: "deactivated", Principal: p}, nil
	}
	if p.ActiveSessionToken == nil || *p.ActiveSessionToken != token {
		return &ValidationResult{Valid: false, Reason: "superseded", Principal: p}, nil
	}
	if p.SessionExpiresAt == nil || *p.SessionExpiresAt <= now {
		return &ValidationResult{Valid: false, Reason: "expired", Principal: p}, nil
	}

	if err := g.store.TouchSessionActivity(ctx, p.ID, now); err != nil {
		return nil, fmt.Errorf("touch session activity: %w", err)
	}
	return &ValidationResult{Valid: true, Principal: p}, nil
}

// Logout invalidates the principal's active session unconditionally.
func (g *Gate) Logout(ctx context.Context, principalID string, now int64) error {
	if err := g.store.SetSession(ctx, principalID, nil, nil, nil, nil); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	_ = audit.Event("LOGOUT", "principal", principalID).
		Principal(principalID, "").Describe("session ended").Best(ctx, g.store, now)
	return nil
}

// VerifyESignature re-checks a principal's plaintext credential without
// mutating any session state. Every lifecycle transition requires a
// successful call to this before any mutation (spec.md §4.2, §4.3).
func (g *Gate) VerifyESignature(ctx context.Context, p *store.Principal, credential string) error {
	match, err := argon2id.ComparePasswordAndHash(credential, p.CredentialHash)
	if err != nil {
		return fmt.Errorf("compare credential: %w", err)
	}
	if !match {
		return dmserr.New(dmserr.ErrESignatureMismatch, "e-signature credential did not match")
	}
	return nil
}

func splitToken(token string) (principalID, randomPart string, ok bool) {
	i := strings.IndexByte(token, '.')
	if i <= 0 || i == len(token)-1 {
		return "", "", false
	}
	return token[:i], token[i+1:], true
}

// generateToken returns an opaque, ≥128-bit-entropy random string.
func generateToken() (string, error) {
	b := make([]byte, 20) // 160 bits
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)), nil
}
