package dms_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmadocs/dmsd/internal/attachment"
	"github.com/pharmadocs/dmsd/internal/auth"
	"github.com/pharmadocs/dmsd/internal/comment"
	"github.com/pharmadocs/dmsd/internal/config"
	"github.com/pharmadocs/dmsd/internal/dms"
	"github.com/pharmadocs/dmsd/internal/exporter"
	"github.com/pharmadocs/dmsd/internal/store"
)

// docxStub is a no-op exporter.Renderer: export plumbing is exercised end
// to end, the HTML-to-DOCX translation itself is an external collaborator.
type docxStub struct{}

func (docxStub) Render(_ context.Context, html string, _ exporter.Metadata) ([]byte, error) {
	return []byte(html), nil
}

func setupService(t *testing.T) (*dms.Service, *store.SQLiteStore) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "dmsd-dms-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())

	blobs, err := attachment.NewFSBlobs(filepath.Join(tmpDir, "blobs"))
	require.NoError(t, err)

	cfg := &config.Config{Departments: []string{"QUAL"}}
	svc := dms.New(s, cfg, blobs, docxStub{})
	t.Cleanup(func() { svc.Close() })
	return svc, s
}

func mustPrincipal(t *testing.T, s *store.SQLiteStore, username, credential string, roles ...store.Role) *store.Principal {
	t.Helper()
	hash, err := auth.HashCredential(credential)
	require.NoError(t, err)
	p := &store.Principal{Username: username, CredentialHash: hash, Active: true, Roles: roles, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.CreatePrincipal(context.Background(), p))
	return p
}

// TestService_FullLifecycle drives a document from creation through
// Effective status entirely through the orchestrator's public methods,
// mirroring spec scenario S1 one layer up from the lifecycle engine.
func TestService_FullLifecycle(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()

	admin := mustPrincipal(t, s, "admin", "adminpw", store.RoleAdmin)
	reviewer := mustPrincipal(t, s, "rev", "revpw", store.RoleReviewer)
	approver := mustPrincipal(t, s, "appr", "apprpw", store.RoleApprover)

	session, err := svc.Login(ctx, "admin", "adminpw", false, 1000)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, session.PrincipalID)

	resolved, err := svc.ResolvePrincipal(ctx, session.Token, 1001)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resolved.ID)

	doc, version, err := svc.CreateDocument(ctx, dms.CreateDocumentRequest{
		Title:              "Cleaning Validation SOP",
		Department:         "QUAL",
		CreateInitialDraft: true,
	}, admin, 1000)
	require.NoError(t, err)
	require.Equal(t, "v0.1", version.VersionString)

	lease, err := svc.AcquireLock(ctx, doc, version, admin, 0, nil, 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, lease.Token)

	lease2, err := svc.HeartbeatLock(ctx, version.ID, lease.Token, admin, 0, 1005)
	require.NoError(t, err)
	assert.True(t, lease2.ExpiresAt >= lease.ExpiresAt)

	saveRes, err := svc.SaveContent(ctx, version.ID, admin, lease.Token, "<h1>Procedure</h1>", nil, false, 1010)
	require.NoError(t, err)
	assert.False(t, saveRes.NoOp)

	c, err := svc.CreateComment(ctx, doc, version, admin, "looks good so far", comment.Anchor{Text: "Procedure"}, 1012)
	require.NoError(t, err)
	assert.False(t, c.IsResolved)

	resolvedComment, err := svc.ResolveComment(ctx, c.ID, admin, 1013)
	require.NoError(t, err)
	assert.True(t, resolvedComment.IsResolved)

	_, err = svc.ReleaseLock(ctx, version.ID, lease.Token, admin, false, 1015)
	require.NoError(t, err)

	v, err := svc.Submit(ctx, doc, version.ID, admin, "adminpw", nil, 1020)
	require.NoError(t, err)
	assert.Equal(t, store.StatusUnderReview, v.Status)

	reviewerTasks, err := svc.GetPendingTasks(ctx, reviewer)
	require.NoError(t, err)
	require.Len(t, reviewerTasks, 1)
	assert.Equal(t, version.ID, reviewerTasks[0].Version)

	v, err = svc.ApproveReview(ctx, version.ID, reviewer, "revpw", nil, 1030)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPendingApproval, v.Status)

	v, err = svc.Approve(ctx, version.ID, approver, "apprpw", nil, 1040)
	require.NoError(t, err)
	assert.Equal(t, store.StatusApproved, v.Status)

	v, err = svc.Publish(ctx, doc, version.ID, admin, "adminpw", nil, 1050)
	require.NoError(t, err)
	assert.Equal(t, store.StatusEffective, v.Status)
	assert.Equal(t, "v1.0", v.VersionString)

	gotDoc, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, gotDoc.CurrentVersionID)
	assert.Equal(t, v.ID, *gotDoc.CurrentVersionID)

	exported, err := svc.ExportVersion(ctx, doc, v.ID, admin, 1060)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "Procedure")

	entries, total, err := svc.ListAuditEntries(ctx, store.AuditFilter{EntityKind: "version", EntityID: v.ID})
	require.NoError(t, err)
	assert.Greater(t, total, 0)
	assert.NotEmpty(t, entries)

	require.NoError(t, svc.Logout(ctx, admin.ID, 1070))
	_, err = svc.ResolvePrincipal(ctx, session.Token, 1071)
	assert.Error(t, err)
}

// TestService_CreateDocumentValidation exercises the struct-tag validation
// CreateDocument applies before the lifecycle engine ever sees the request.
func TestService_CreateDocumentValidation(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	owner := mustPrincipal(t, s, "owner", "ownerpw", store.RoleAuthor)

	_, _, err := svc.CreateDocument(ctx, dms.CreateDocumentRequest{
		Title:      "",
		Department: "QUAL",
	}, owner, 1000)
	assert.Error(t, err, "empty title must fail validation")

	_, _, err = svc.CreateDocument(ctx, dms.CreateDocumentRequest{
		Title:      "Valid Title",
		Department: "NOPE",
	}, owner, 1000)
	assert.Error(t, err, "department must be a registered code")
}

// TestService_AttachmentRoundTrip exercises the Attachments operation
// group end to end through the orchestrator.
func TestService_AttachmentRoundTrip(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	owner := mustPrincipal(t, s, "owner", "ownerpw", store.RoleAuthor)

	doc, _, err := svc.CreateDocument(ctx, dms.CreateDocumentRequest{
		Title: "Equipment Log", Department: "QUAL",
	}, owner, 1000)
	require.NoError(t, err)

	content := []byte("batch record image bytes")
	att, err := svc.UploadAttachment(ctx, attachment.ParentDocument, doc.ID, content, "record.png", "image/png", owner, "png", 1001)
	require.NoError(t, err)

	got, filename, err := svc.DownloadAttachment(ctx, att.ID, "png")
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, "record.png", filename)

	list, err := svc.ListAttachments(ctx, attachment.ParentDocument, doc.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteAttachment(ctx, att.ID, owner, 1002))
	list, err = svc.ListAttachments(ctx, attachment.ParentDocument, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
