package comment_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/pharmadocs/dmsd/internal/comment"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, status store.VersionStatus) (*store.SQLiteStore, *store.Document, *store.DocumentVersion, *store.Principal, *store.Principal) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "dmsd-comment-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	author := &store.Principal{Username: "alice", CredentialHash: "h", Active: true, Roles: []store.Role{store.RoleAuthor}, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.CreatePrincipal(ctx, author))
	reviewer := &store.Principal{Username: "carol", CredentialHash: "h", Active: true, Roles: []store.Role{store.RoleReviewer}, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.CreatePrincipal(ctx, reviewer))

	var doc store.Document
	var v store.DocumentVersion
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		doc = store.Document{DocumentNumber: "SOP-QUAL-20260731-0001", Title: "T", Department: "QUAL", OwnerID: author.ID, CreatedAt: 1, UpdatedAt: 1}
		if err := s.CreateDocument(ctx, tx, &doc); err != nil {
			return err
		}
		v = store.DocumentVersion{DocumentID: doc.ID, VersionNumber: 1, VersionString: "v1.0", Status: status, ContentHash: "h", IsLatest: true, CreatedAt: 1, UpdatedAt: 1}
		return s.CreateVersion(ctx, tx, &v)
	})
	require.NoError(t, err)
	return s, &doc, &v, author, reviewer
}

func TestComment_ReviewerCanCommentOnUnderReview(t *testing.T) {
	s, doc, v, _, reviewer := setup(t, store.StatusUnderReview)
	svc := comment.New(s)
	ctx := context.Background()

	c, err := svc.Create(ctx, doc, v, reviewer, "please clarify step 3", comment.Anchor{Text: "step 3"}, 10)
	require.NoError(t, err)
	assert.Equal(t, v.ID, c.VersionID)
	assert.False(t, c.IsResolved)
}

func TestComment_ReviewerCannotCommentOnDraft(t *testing.T) {
	s, doc, v, _, reviewer := setup(t, store.StatusDraft)
	svc := comment.New(s)
	ctx := context.Background()

	_, err := svc.Create(ctx, doc, v, reviewer, "hi", comment.Anchor{Text: "x"}, 10)
	assert.ErrorIs(t, err, dmserr.ErrPermissionDenied)
}

func TestComment_ResolveAndUnresolve(t *testing.T) {
	s, doc, v, _, reviewer := setup(t, store.StatusUnderReview)
	svc := comment.New(s)
	ctx := context.Background()

	c, err := svc.Create(ctx, doc, v, reviewer, "body", comment.Anchor{Text: "x"}, 10)
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, c.ID, reviewer, 20)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	assert.NotNil(t, resolved.ResolvedBy)

	reopened, err := svc.Unresolve(ctx, c.ID, reviewer, 30)
	require.NoError(t, err)
	assert.False(t, reopened.IsResolved)
	assert.Nil(t, reopened.ResolvedBy)
}

func TestComment_OnlyAuthorOrAdminMayEdit(t *testing.T) {
	s, doc, v, author, reviewer := setup(t, store.StatusUnderReview)
	svc := comment.New(s)
	ctx := context.Background()

	c, err := svc.Create(ctx, doc, v, reviewer, "body", comment.Anchor{Text: "x"}, 10)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, c.ID, author, "rewritten", 20)
	assert.ErrorIs(t, err, dmserr.ErrPermissionDenied)

	edited, err := svc.Edit(ctx, c.ID, reviewer, "rewritten", 20)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", edited.Body)
}

func TestComment_ListExcludesResolvedByDefault(t *testing.T) {
	s, doc, v, _, reviewer := setup(t, store.StatusUnderReview)
	svc := comment.New(s)
	ctx := context.Background()

	c1, err := svc.Create(ctx, doc, v, reviewer, "one", comment.Anchor{Text: "x"}, 10)
	require.NoError(t, err)
	_, err = svc.Create(ctx, doc, v, reviewer, "two", comment.Anchor{Text: "y"}, 11)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, c1.ID, reviewer, 12)
	require.NoError(t, err)

	open, err := svc.List(ctx, v.ID, false)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	all, err := svc.List(ctx, v.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
