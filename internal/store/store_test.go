package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "dmsd-store-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return s
}

func mustPrincipal(t *testing.T, s *store.SQLiteStore, username string, roles ...store.Role) *store.Principal {
	t.Helper()
	now := time.Now().Unix()
	p := &store.Principal{
		Username:       username,
		CredentialHash: "hash:" + username,
		Active:         true,
		Roles:          roles,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.CreatePrincipal(context.Background(), p))
	return p
}

func TestStore_PrincipalRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p := mustPrincipal(t, s, "alice", store.RoleAuthor, store.RoleAdmin)

	got, err := s.GetPrincipalByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.True(t, got.Active)
	assert.ElementsMatch(t, []store.Role{store.RoleAuthor, store.RoleAdmin}, got.Roles)

	_, err = s.GetPrincipalByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_PrincipalUsernameUnique(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	mustPrincipal(t, s, "bob")

	dup := &store.Principal{Username: "bob", CredentialHash: "x", Active: true, CreatedAt: 1, UpdatedAt: 1}
	err := s.CreatePrincipal(ctx, dup)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestStore_SingleSessionToken(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	p := mustPrincipal(t, s, "carol")

	token := "tok-1"
	now := time.Now().Unix()
	exp := now + 3600
	require.NoError(t, s.SetSession(ctx, p.ID, &token, &now, &exp, &now))

	got, err := s.GetPrincipalByUsername(ctx, "carol")
	require.NoError(t, err)
	require.NotNil(t, got.ActiveSessionToken)
	assert.Equal(t, token, *got.ActiveSessionToken)

	token2 := "tok-2"
	require.NoError(t, s.SetSession(ctx, p.ID, &token2, &now, &exp, &now))
	got, err = s.GetPrincipalByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, token2, *got.ActiveSessionToken)
}

func TestStore_DocumentAndVersionLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := mustPrincipal(t, s, "dave", store.RoleAuthor)

	var doc store.Document
	var v1 store.DocumentVersion
	now := time.Now().Unix()

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		n, err := s.NextDocumentNumber(ctx, tx, "QUAL", "20260731")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		doc = store.Document{
			DocumentNumber: "SOP-QUAL-20260731-0001",
			Title:          "QC SOP",
			Department:     "QUAL",
			OwnerID:        owner.ID,
			Tags:           []string{"quality"},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.CreateDocument(ctx, tx, &doc); err != nil {
			return err
		}

		v1 = store.DocumentVersion{
			DocumentID:    doc.ID,
			VersionNumber: 1,
			VersionString: "v0.1",
			Status:        store.StatusDraft,
			Content:       "<h1>QC</h1>",
			ContentHash:   "hash1",
			IsLatest:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.CreateVersion(ctx, tx, &v1)
	})
	require.NoError(t, err)

	gotDoc, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "SOP-QUAL-20260731-0001", gotDoc.DocumentNumber)
	assert.Equal(t, []string{"quality"}, gotDoc.Tags)

	gotVersion, err := s.GetVersion(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusDraft, gotVersion.Status)
	assert.Equal(t, "v0.1", gotVersion.VersionString)
}

func TestStore_OnlyOneEffectiveVersionPerDocument(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := mustPrincipal(t, s, "erin", store.RoleAuthor)
	now := time.Now().Unix()

	var doc store.Document
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		doc = store.Document{DocumentNumber: "SOP-QUAL-20260731-0002", Title: "T", Department: "QUAL", OwnerID: owner.ID, CreatedAt: now, UpdatedAt: now}
		return s.CreateDocument(ctx, tx, &doc)
	})
	require.NoError(t, err)

	mk := func(num int, status store.VersionStatus) store.DocumentVersion {
		return store.DocumentVersion{
			DocumentID: doc.ID, VersionNumber: num, VersionString: "v1.0", Status: status,
			ContentHash: "h", IsLatest: true, CreatedAt: now, UpdatedAt: now,
		}
	}

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		v := mk(1, store.StatusEffective)
		return s.CreateVersion(ctx, tx, &v)
	})
	require.NoError(t, err)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		v := mk(2, store.StatusEffective)
		return s.CreateVersion(ctx, tx, &v)
	})
	assert.Error(t, err, "a second Effective version for the same document must be rejected by the unique partial index")
}

func TestStore_OnlyOneDraftVersionPerDocument(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := mustPrincipal(t, s, "frank", store.RoleAuthor)
	now := time.Now().Unix()

	var doc store.Document
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		doc = store.Document{DocumentNumber: "SOP-QUAL-20260731-0003", Title: "T", Department: "QUAL", OwnerID: owner.ID, CreatedAt: now, UpdatedAt: now}
		return s.CreateDocument(ctx, tx, &doc)
	})
	require.NoError(t, err)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		v := store.DocumentVersion{DocumentID: doc.ID, VersionNumber: 1, VersionString: "v0.1", Status: store.StatusDraft, ContentHash: "h", IsLatest: true, CreatedAt: now, UpdatedAt: now}
		return s.CreateVersion(ctx, tx, &v)
	})
	require.NoError(t, err)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		v := store.DocumentVersion{DocumentID: doc.ID, VersionNumber: 2, VersionString: "v0.2", Status: store.StatusDraft, ContentHash: "h2", IsLatest: true, CreatedAt: now, UpdatedAt: now}
		return s.CreateVersion(ctx, tx, &v)
	})
	assert.Error(t, err, "a second Draft version for the same document must be rejected by the unique partial index")
}

func TestStore_LockAcquireAndExpiry(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Now().Unix()

	versionID := "v-1"
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		l := &store.EditLock{VersionID: versionID, Token: "tok", HolderID: "p-1", AcquiredAt: now, ExpiresAt: now + 1800, LastHeartbeat: now}
		return s.CreateLock(ctx, tx, l, now)
	})
	require.NoError(t, err)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		l, err := s.GetActiveLock(ctx, tx, versionID, now)
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, "tok", l.Token)
		return nil
	})
	require.NoError(t, err)

	// A lock whose expiry has passed is invisible to GetActiveLock.
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		l, err := s.GetActiveLock(ctx, tx, versionID, now+3600)
		require.NoError(t, err)
		assert.Nil(t, l)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_CommentLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Now().Unix()

	c := &store.Comment{VersionID: "v-1", AuthorID: "p-1", Body: "please clarify", AnchorText: "selected text", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateComment(ctx, c))

	list, err := s.ListComments(ctx, "v-1", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsResolved)

	c.IsResolved = true
	resolver := "p-2"
	c.ResolvedBy = &resolver
	resolvedAt := now + 10
	c.ResolvedAt = &resolvedAt
	c.UpdatedAt = resolvedAt
	require.NoError(t, s.UpdateComment(ctx, c))

	unresolvedOnly, err := s.ListComments(ctx, "v-1", false)
	require.NoError(t, err)
	assert.Len(t, unresolvedOnly, 0)
}

func TestStore_AttachmentDedup(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Now().Unix()

	docID := "doc-1"
	a := &store.Attachment{Filename: "spec.pdf", SHA256: "abc123", ByteSize: 42, MimeType: "application/pdf", UploaderID: "p-1", DocumentID: &docID, CreatedAt: now}
	require.NoError(t, s.CreateAttachment(ctx, a))

	existing, err := s.FindAttachmentByHash(ctx, "document", docID, "abc123")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, a.ID, existing.ID)

	missing, err := s.FindAttachmentByHash(ctx, "document", docID, "doesnotexist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_AuditAppendIsTransactional(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Now().Unix()

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		e := &store.AuditEntry{Username: "alice", Action: "VERSION_SAVED", EntityKind: "version", EntityID: "v-1", Description: "saved", CreatedAt: now}
		if err := s.AppendAudit(ctx, tx, e); err != nil {
			return err
		}
		return fmt.Errorf("force rollback")
	})
	assert.Error(t, err)

	entries, total, err := s.ListAuditEntries(ctx, store.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, entries)
}
