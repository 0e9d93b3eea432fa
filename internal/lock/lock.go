// Package lock implements the edit-lock coordinator (spec.md §4.4): a
// time-bounded exclusive lease that gates every mutation of a Draft
// version's content or metadata.
package lock

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/metrics"
	"github.com/pharmadocs/dmsd/internal/rbac"
	"github.com/pharmadocs/dmsd/internal/store"
)

// genToken returns an opaque, ≥128-bit-entropy lock token.
func genToken() (string, error) {
	b := make([]byte, 20) // 160 bits
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)), nil
}

const (
	defaultTimeout = 30 * time.Minute
	maxTimeout     = 60 * time.Minute
)

// Lease is the public view of an acquired or inspected lock.
type Lease struct {
	VersionID     string
	Token         string
	HolderID      string
	HolderName    string
	SessionTag    *string
	AcquiredAt    int64
	ExpiresAt     int64
	LastHeartbeat int64
}

// Coordinator is the edit-lock coordinator, backed by a Store.
type Coordinator struct {
	store store.Store
}

func New(s store.Store) *Coordinator {
	return &Coordinator{store: s}
}

// Acquire creates or idempotently re-returns the caller's lock on version.
// timeout clamps to [0, maxTimeout], defaulting to defaultTimeout when zero.
func (c *Coordinator) Acquire(ctx context.Context, doc *store.Document, version *store.DocumentVersion, principal *store.Principal, timeout time.Duration, sessionTag *string, now int64) (*Lease, error) {
	if !rbac.CanEditDraft(principal, doc) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only the owning author or an admin may edit this draft")
	}
	if version.Status != store.StatusDraft {
		return nil, dmserr.New(dmserr.ErrIllegalStatus, "only a Draft version may be locked")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	var lease *Lease
	err := c.store.Tx(ctx, func(tx *sql.Tx) error {
		existing, err := c.store.GetActiveLock(ctx, tx, version.ID, now)
		if err != nil {
			return fmt.Errorf("read active lock: %w", err)
		}

		if existing != nil && existing.HolderID == principal.ID {
			if sessionTag != nil && (existing.SessionTag == nil || *existing.SessionTag != *sessionTag) {
				existing.SessionTag = sessionTag
				existing.LastHeartbeat = now
				if err := c.store.CreateLock(ctx, tx, existing, now); err != nil {
					return fmt.Errorf("update session tag: %w", err)
				}
			}
			lease = toLease(existing, principal.Username)
			return nil
		}

		if existing != nil {
			holder, err := c.store.GetPrincipalByID(ctx, existing.HolderID)
			if err != nil {
				return fmt.Errorf("resolve lock holder: %w", err)
			}
			return dmserr.Locked(holder.Username, existing.ExpiresAt)
		}

		token, err := genToken()
		if err != nil {
			return fmt.Errorf("generate lock token: %w", err)
		}
		l := &store.EditLock{
			VersionID:     version.ID,
			Token:         token,
			HolderID:      principal.ID,
			SessionTag:    sessionTag,
			AcquiredAt:    now,
			ExpiresAt:     now + int64(timeout.Seconds()),
			LastHeartbeat: now,
		}
		if err := c.store.CreateLock(ctx, tx, l, now); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// Lost the race: another transaction committed a live lock
				// for this version between our read above and this insert.
				// Re-read inside the same tx to report the actual winner.
				holder, lookErr := c.store.GetActiveLock(ctx, tx, version.ID, now)
				if lookErr == nil && holder != nil {
					if p, pErr := c.store.GetPrincipalByID(ctx, holder.HolderID); pErr == nil {
						return dmserr.Locked(p.Username, holder.ExpiresAt)
					}
				}
				return dmserr.New(dmserr.ErrLocked, "version is locked by another principal")
			}
			return fmt.Errorf("create lock: %w", err)
		}
		lease = toLease(l, principal.Username)
		return nil
	})
	if err != nil {
		if errors.Is(err, dmserr.ErrLocked) {
			metrics.LockContentionTotal.Inc()
		}
		return nil, err
	}
	return lease, nil
}

// Heartbeat extends an active lock held by principal via token, advancing
// its expiry to now+extend and its last-heartbeat to now. Clients are
// expected to call this every 15s (spec.md §4.4).
func (c *Coordinator) Heartbeat(ctx context.Context, versionID, token string, principal *store.Principal, extend time.Duration, now int64) (*Lease, error) {
	if extend <= 0 {
		extend = defaultTimeout
	}
	if extend > maxTimeout {
		extend = maxTimeout
	}

	var lease *Lease
	err := c.store.Tx(ctx, func(tx *sql.Tx) error {
		existing, err := c.store.GetActiveLock(ctx, tx, versionID, now)
		if err != nil {
			return fmt.Errorf("read active lock: %w", err)
		}
		if existing == nil {
			return dmserr.New(dmserr.ErrLockExpired, "lock is no longer active")
		}
		if existing.Token != token || existing.HolderID != principal.ID {
			return dmserr.New(dmserr.ErrLockNotHeld, "lock token does not match the active lock")
		}

		newExpiry := now + int64(extend.Seconds())
		ok, err := c.store.UpdateLockExpiry(ctx, tx, versionID, token, newExpiry, now)
		if err != nil {
			return fmt.Errorf("extend lock: %w", err)
		}
		if !ok {
			return dmserr.New(dmserr.ErrLockNotHeld, "lock token does not match the active lock")
		}
		existing.ExpiresAt = newExpiry
		existing.LastHeartbeat = now
		lease = toLease(existing, principal.Username)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// Release deletes the lock if token matches its holder, or unconditionally
// when forceAdmin is true and principal is an Admin. forceAdmin release
// records forced_by_admin=true for the caller's audit entry; callers must
// write that audit entry themselves, since Release has no transaction
// context of its own to attach it to.
func (c *Coordinator) Release(ctx context.Context, versionID, token string, principal *store.Principal, forceAdmin bool, now int64) (forcedByAdmin bool, err error) {
	err = c.store.Tx(ctx, func(tx *sql.Tx) error {
		existing, err := c.store.GetActiveLock(ctx, tx, versionID, now)
		if err != nil {
			return fmt.Errorf("read active lock: %w", err)
		}
		if existing == nil {
			return nil
		}

		if forceAdmin {
			if !rbac.CanManagePrincipals(principal) {
				return dmserr.New(dmserr.ErrPermissionDenied, "only an admin may force-release a lock")
			}
			forcedByAdmin = true
			return c.store.DeleteLock(ctx, tx, versionID)
		}

		if existing.Token != token {
			return dmserr.New(dmserr.ErrLockNotHeld, "lock token does not match the active lock")
		}
		return c.store.DeleteLock(ctx, tx, versionID)
	})
	return forcedByAdmin, err
}

// GetLockStatus is a read-only probe returning the active lock, or nil if
// none is active.
func (c *Coordinator) GetLockStatus(ctx context.Context, versionID string, now int64) (*Lease, error) {
	var lease *Lease
	err := c.store.Tx(ctx, func(tx *sql.Tx) error {
		l, err := c.store.GetActiveLock(ctx, tx, versionID, now)
		if err != nil {
			return err
		}
		if l == nil {
			return nil
		}
		holder, err := c.store.GetPrincipalByID(ctx, l.HolderID)
		if err != nil {
			return fmt.Errorf("resolve lock holder: %w", err)
		}
		lease = toLease(l, holder.Username)
		return nil
	})
	return lease, err
}

// RequireLock is the helper every save path calls: fails LockNotHeld on a
// missing or mismatched token. Administrator override is not permitted
// here, unlike Release (spec.md §4.4).
func (c *Coordinator) RequireLock(ctx context.Context, tx *sql.Tx, versionID string, principal *store.Principal, suppliedToken string, now int64) error {
	if suppliedToken == "" {
		return dmserr.New(dmserr.ErrLockNotHeld, "no lock token supplied")
	}
	existing, err := c.store.GetActiveLock(ctx, tx, versionID, now)
	if err != nil {
		return fmt.Errorf("read active lock: %w", err)
	}
	if existing == nil {
		return dmserr.New(dmserr.ErrLockExpired, "lock is no longer active")
	}
	if existing.Token != suppliedToken || existing.HolderID != principal.ID {
		return dmserr.New(dmserr.ErrLockNotHeld, "lock token does not match the active lock")
	}
	return nil
}

func toLease(l *store.EditLock, holderName string) *Lease {
	return &Lease{
		VersionID:     l.VersionID,
		Token:         l.Token,
		HolderID:      l.HolderID,
		HolderName:    holderName,
		SessionTag:    l.SessionTag,
		AcquiredAt:    l.AcquiredAt,
		ExpiresAt:     l.ExpiresAt,
		LastHeartbeat: l.LastHeartbeat,
	}
}
