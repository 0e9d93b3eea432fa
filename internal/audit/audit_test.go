package audit_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "dmsd-audit-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAudit_CommitWritesWithinTransaction(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		return audit.Event("VERSION_PUBLISHED", "version", "v-1").
			Principal("p-1", "alice").
			Describe("published v1.0").
			ESignature(true).
			Detail("replaces", "v-0").
			Commit(ctx, s, tx, 1000)
	})
	require.NoError(t, err)

	entries, total, err := s.ListAuditEntries(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "VERSION_PUBLISHED", entries[0].Action)
	assert.True(t, entries[0].ESignature)
	assert.Equal(t, "v-0", entries[0].Detail["replaces"])
}

func TestAudit_CommitRollsBackWithMutation(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if err := audit.Event("VERSION_PUBLISHED", "version", "v-2").
			Principal("p-1", "alice").
			ESignature(true).
			Commit(ctx, s, tx, 1000); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.Error(t, err)

	_, total, err := s.ListAuditEntries(ctx, store.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestAudit_BestEffortOutsideTransaction(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := audit.Event("LOGIN_FAILURE", "principal", "bob").
		Username("bob").
		Describe("invalid credentials").
		ESignature(false).
		Best(ctx, s, 1000)
	require.NoError(t, err)

	entries, total, err := s.ListAuditEntries(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "LOGIN_FAILURE", entries[0].Action)
	assert.False(t, entries[0].ESignature)
}
