package attachment_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/pharmadocs/dmsd/internal/attachment"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.SQLiteStore, *attachment.FSBlobs, *store.Document, *store.Principal) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "dmsd-attachment-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })

	blobs, err := attachment.NewFSBlobs(filepath.Join(tmpDir, "blobs"))
	require.NoError(t, err)

	ctx := context.Background()
	owner := &store.Principal{Username: "alice", CredentialHash: "h", Active: true, Roles: []store.Role{store.RoleAuthor}, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.CreatePrincipal(ctx, owner))

	var doc store.Document
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		doc = store.Document{DocumentNumber: "SOP-QUAL-20260731-0001", Title: "T", Department: "QUAL", OwnerID: owner.ID, CreatedAt: 1, UpdatedAt: 1}
		return s.CreateDocument(ctx, tx, &doc)
	})
	require.NoError(t, err)
	return s, blobs, &doc, owner
}

func TestAttachment_UploadDownloadRoundTrip(t *testing.T) {
	s, blobs, doc, owner := setup(t)
	svc := attachment.New(s, blobs)
	ctx := context.Background()

	content := []byte("batch record appendix")
	a, err := svc.Upload(ctx, attachment.ParentDocument, doc.ID, content, "appendix.txt", "text/plain", owner, "txt", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), a.ByteSize)

	got, name, err := svc.Download(ctx, a.ID, "txt")
	require.NoError(t, err)
	assert.Equal(t, "appendix.txt", name)
	assert.Equal(t, content, got)
}

func TestAttachment_DuplicateUploadDedupes(t *testing.T) {
	s, blobs, doc, owner := setup(t)
	svc := attachment.New(s, blobs)
	ctx := context.Background()

	content := []byte("same bytes")
	a1, err := svc.Upload(ctx, attachment.ParentDocument, doc.ID, content, "a.txt", "text/plain", owner, "txt", 10)
	require.NoError(t, err)
	a2, err := svc.Upload(ctx, attachment.ParentDocument, doc.ID, content, "a-again.txt", "text/plain", owner, "txt", 11)
	require.NoError(t, err)

	assert.Equal(t, a1.ID, a2.ID)
	assert.Equal(t, "a.txt", a2.Filename)

	list, err := svc.List(ctx, attachment.ParentDocument, doc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAttachment_SoftDeleteHidesFromList(t *testing.T) {
	s, blobs, doc, owner := setup(t)
	svc := attachment.New(s, blobs)
	ctx := context.Background()

	a, err := svc.Upload(ctx, attachment.ParentDocument, doc.ID, []byte("x"), "a.txt", "text/plain", owner, "txt", 10)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID, owner, 20))

	list, err := svc.List(ctx, attachment.ParentDocument, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
