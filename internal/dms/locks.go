package dms

import (
	"context"
	"time"

	"github.com/pharmadocs/dmsd/internal/lock"
	"github.com/pharmadocs/dmsd/internal/store"
)

// AcquireLock takes out the Draft's edit lease, clamped to the deployment's
// configured maximum (spec.md §6 Edit Locks, §4.4).
func (s *Service) AcquireLock(ctx context.Context, doc *store.Document, version *store.DocumentVersion, principal *store.Principal, timeout time.Duration, sessionTag *string, now int64) (*lock.Lease, error) {
	if timeout <= 0 {
		timeout = s.cfg.LockDefaultTimeout()
	}
	if max := s.cfg.LockMaxTimeout(); timeout > max {
		timeout = max
	}
	return s.locks.Acquire(ctx, doc, version, principal, timeout, sessionTag, now)
}

// HeartbeatLock extends an active lease (spec.md §6 Edit Locks).
func (s *Service) HeartbeatLock(ctx context.Context, versionID, token string, principal *store.Principal, extend time.Duration, now int64) (*lock.Lease, error) {
	if extend <= 0 {
		extend = s.cfg.LockDefaultTimeout()
	}
	return s.locks.Heartbeat(ctx, versionID, token, principal, extend, now)
}

// ReleaseLock releases a lease by token, or unconditionally when forceAdmin
// is set and principal is an admin (spec.md §6 Edit Locks).
func (s *Service) ReleaseLock(ctx context.Context, versionID, token string, principal *store.Principal, forceAdmin bool, now int64) (forcedByAdmin bool, err error) {
	return s.locks.Release(ctx, versionID, token, principal, forceAdmin, now)
}

// GetLockStatus is a read-only probe for a version's active lease
// (spec.md §6 Edit Locks).
func (s *Service) GetLockStatus(ctx context.Context, versionID string, now int64) (*lock.Lease, error) {
	return s.locks.GetLockStatus(ctx, versionID, now)
}
