package lock_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/lock"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.SQLiteStore, *store.Document, *store.DocumentVersion, *store.Principal, *store.Principal) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "dmsd-lock-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	owner := &store.Principal{Username: "alice", CredentialHash: "h", Active: true, Roles: []store.Role{store.RoleAuthor}, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.CreatePrincipal(ctx, owner))
	other := &store.Principal{Username: "bob", CredentialHash: "h", Active: true, Roles: []store.Role{store.RoleAuthor}, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.CreatePrincipal(ctx, other))

	var doc store.Document
	var v store.DocumentVersion
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		doc = store.Document{DocumentNumber: "SOP-QUAL-20260731-0001", Title: "T", Department: "QUAL", OwnerID: owner.ID, CreatedAt: 1, UpdatedAt: 1}
		if err := s.CreateDocument(ctx, tx, &doc); err != nil {
			return err
		}
		v = store.DocumentVersion{DocumentID: doc.ID, VersionNumber: 1, VersionString: "v0.1", Status: store.StatusDraft, ContentHash: "h", IsLatest: true, CreatedAt: 1, UpdatedAt: 1}
		return s.CreateVersion(ctx, tx, &v)
	})
	require.NoError(t, err)
	return s, &doc, &v, owner, other
}

func TestLock_AcquireThenIdempotentReacquire(t *testing.T) {
	s, doc, v, owner, _ := setup(t)
	c := lock.New(s)
	ctx := context.Background()

	l1, err := c.Acquire(ctx, doc, v, owner, 0, nil, 1000)
	require.NoError(t, err)

	l2, err := c.Acquire(ctx, doc, v, owner, 0, nil, 1500)
	require.NoError(t, err)
	require.Equal(t, l1.Token, l2.Token)
	require.Equal(t, l1.ExpiresAt, l2.ExpiresAt, "re-acquire by the same holder must not reset expiry")
}

func TestLock_AcquireByOtherPrincipalFails(t *testing.T) {
	s, doc, v, owner, other := setup(t)
	c := lock.New(s)
	ctx := context.Background()

	_, err := c.Acquire(ctx, doc, v, owner, 0, nil, 1000)
	require.NoError(t, err)

	_, err = c.Acquire(ctx, doc, v, other, 0, nil, 1100)
	var derr *dmserr.Error
	require.ErrorAs(t, err, &derr)
	require.ErrorIs(t, derr, dmserr.ErrLocked)
	require.Equal(t, owner.Username, derr.Detail["holder"])
}

func TestLock_HeartbeatExtendsExpiry(t *testing.T) {
	s, doc, v, owner, _ := setup(t)
	c := lock.New(s)
	ctx := context.Background()

	l, err := c.Acquire(ctx, doc, v, owner, 0, nil, 1000)
	require.NoError(t, err)

	extended, err := c.Heartbeat(ctx, v.ID, l.Token, owner, 0, 1200)
	require.NoError(t, err)
	require.Greater(t, extended.ExpiresAt, l.ExpiresAt)
}

func TestLock_HeartbeatWrongTokenFails(t *testing.T) {
	s, doc, v, owner, _ := setup(t)
	c := lock.New(s)
	ctx := context.Background()

	_, err := c.Acquire(ctx, doc, v, owner, 0, nil, 1000)
	require.NoError(t, err)

	_, err = c.Heartbeat(ctx, v.ID, "wrong-token", owner, 0, 1200)
	require.ErrorIs(t, err, dmserr.ErrLockNotHeld)
}

func TestLock_ReleaseByHolder(t *testing.T) {
	s, doc, v, owner, _ := setup(t)
	c := lock.New(s)
	ctx := context.Background()

	l, err := c.Acquire(ctx, doc, v, owner, 0, nil, 1000)
	require.NoError(t, err)

	forced, err := c.Release(ctx, v.ID, l.Token, owner, false, 1100)
	require.NoError(t, err)
	require.False(t, forced)

	status, err := c.GetLockStatus(ctx, v.ID, 1100)
	require.NoError(t, err)
	require.Nil(t, status)
}

func TestLock_ExpiredLockReplacedOnAcquire(t *testing.T) {
	s, doc, v, owner, other := setup(t)
	c := lock.New(s)
	ctx := context.Background()

	_, err := c.Acquire(ctx, doc, v, owner, 1, nil, 1000) // 1ns: the lease expires at once
	require.NoError(t, err)

	// Past expiry, a different principal may now acquire.
	l2, err := c.Acquire(ctx, doc, v, other, 0, nil, 1000+61)
	require.NoError(t, err)
	require.Equal(t, other.ID, l2.HolderID)
}

func TestRequireLock(t *testing.T) {
	s, doc, v, owner, other := setup(t)
	c := lock.New(s)
	ctx := context.Background()

	l, err := c.Acquire(ctx, doc, v, owner, 0, nil, 1000)
	require.NoError(t, err)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return c.RequireLock(ctx, tx, v.ID, owner, l.Token, 1100)
	})
	require.NoError(t, err)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return c.RequireLock(ctx, tx, v.ID, other, l.Token, 1100)
	})
	require.ErrorIs(t, err, dmserr.ErrLockNotHeld)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		return c.RequireLock(ctx, tx, v.ID, owner, "", 1100)
	})
	require.ErrorIs(t, err, dmserr.ErrLockNotHeld)
}

// TestLock_ConcurrentAcquireHasExactlyOneWinner drives two principals'
// Acquire calls at the same instant from separate goroutines (spec scenario
// B3): exactly one must succeed and the other must observe dmserr.ErrLocked,
// never both succeeding with different tokens for the same version.
func TestLock_ConcurrentAcquireHasExactlyOneWinner(t *testing.T) {
	s, doc, v, owner, other := setup(t)
	c := lock.New(s)
	ctx := context.Background()

	start := make(chan struct{})
	results := make(chan error, 2)

	race := func(principal *store.Principal) {
		<-start
		_, err := c.Acquire(ctx, doc, v, principal, 0, nil, 1000)
		results <- err
	}
	go race(owner)
	go race(other)
	close(start)

	var successes, lockedFailures int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			successes++
		case errors.Is(err, dmserr.ErrLocked):
			lockedFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, successes, "exactly one concurrent Acquire must win")
	require.Equal(t, 1, lockedFailures, "the loser must observe ErrLocked, not a raw driver error")

	status, err := c.GetLockStatus(ctx, v.ID, 1000)
	require.NoError(t, err)
	require.NotNil(t, status, "the winner's lock must be the only row left standing")
}
