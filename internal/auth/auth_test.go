package auth_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pharmadocs/dmsd/internal/auth"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "dmsd-auth-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return s
}

func createPrincipal(t *testing.T, s *store.SQLiteStore, username, plaintext string, roles ...store.Role) *store.Principal {
	t.Helper()
	hash, err := auth.HashCredential(plaintext)
	require.NoError(t, err)
	p := &store.Principal{Username: username, CredentialHash: hash, Active: true, Roles: roles, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.CreatePrincipal(context.Background(), p))
	return p
}

func TestLogin_Success(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	createPrincipal(t, s, "alice", "correct horse", store.RoleAuthor)
	g := auth.New(s)

	sess, err := g.Login(ctx, "alice", "correct horse", false, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Equal(t, int64(1000+3600), sess.ExpiresAt)
}

func TestLogin_WrongCredential(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	createPrincipal(t, s, "bob", "correct horse", store.RoleAuthor)
	g := auth.New(s)

	_, err := g.Login(ctx, "bob", "wrong", false, 1000)
	var derr *dmserr.Error
	require.ErrorAs(t, err, &derr)
	require.ErrorIs(t, derr, dmserr.ErrInvalidCredentials)
}

func TestLogin_UnknownUsernameLooksLikeBadCredential(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	g := auth.New(s)

	_, err := g.Login(ctx, "ghost", "whatever", false, 1000)
	require.ErrorIs(t, err, dmserr.ErrInvalidCredentials)
}

func TestLogin_SessionConflictThenForce(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	createPrincipal(t, s, "carol", "pw", store.RoleAuthor)
	g := auth.New(s)

	first, err := g.Login(ctx, "carol", "pw", false, 1000)
	require.NoError(t, err)

	_, err = g.Login(ctx, "carol", "pw", false, 1100)
	require.ErrorIs(t, err, dmserr.ErrSessionConflict)

	second, err := g.Login(ctx, "carol", "pw", true, 1200)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	res, err := g.ValidateSession(ctx, first.Token, 1300)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, "superseded", res.Reason)

	res2, err := g.ValidateSession(ctx, second.Token, 1300)
	require.NoError(t, err)
	require.True(t, res2.Valid)
}

func TestValidateSession_Expired(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	createPrincipal(t, s, "dave", "pw", store.RoleAuthor)
	g := auth.New(s)

	sess, err := g.Login(ctx, "dave", "pw", false, 1000)
	require.NoError(t, err)

	res, err := g.ValidateSession(ctx, sess.Token, sess.ExpiresAt+1)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, "expired", res.Reason)
}

func TestValidateSession_Deactivated(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	p := createPrincipal(t, s, "erin", "pw", store.RoleAuthor)
	g := auth.New(s)

	sess, err := g.Login(ctx, "erin", "pw", false, 1000)
	require.NoError(t, err)

	require.NoError(t, s.SetActive(ctx, p.ID, false))

	res, err := g.ValidateSession(ctx, sess.Token, 1100)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, "deactivated", res.Reason)
}

func TestVerifyESignature(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	p := createPrincipal(t, s, "frank", "pw", store.RoleApprover)
	g := auth.New(s)

	require.NoError(t, g.VerifyESignature(ctx, p, "pw"))

	err := g.VerifyESignature(ctx, p, "wrong")
	require.ErrorIs(t, err, dmserr.ErrESignatureMismatch)
}

func TestLogout(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	createPrincipal(t, s, "gina", "pw", store.RoleAuthor)
	g := auth.New(s)

	sess, err := g.Login(ctx, "gina", "pw", false, 1000)
	require.NoError(t, err)

	require.NoError(t, g.Logout(ctx, sess.PrincipalID, 1100))

	res, err := g.ValidateSession(ctx, sess.Token, 1100)
	require.NoError(t, err)
	require.False(t, res.Valid)
}
