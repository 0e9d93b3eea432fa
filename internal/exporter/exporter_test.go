package exporter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pharmadocs/dmsd/internal/exporter"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	lastHTML string
	lastMeta exporter.Metadata
}

func (f *fakeRenderer) Render(_ context.Context, html string, meta exporter.Metadata) ([]byte, error) {
	f.lastHTML = html
	f.lastMeta = meta
	return []byte("fake-docx-bytes"), nil
}

func TestExporter_ExportPassesMetadataToRenderer(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dmsd-exporter-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	owner := &store.Principal{Username: "admin", CredentialHash: "h", Active: true, Roles: []store.Role{store.RoleAdmin}, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.CreatePrincipal(ctx, owner))

	doc := &store.Document{DocumentNumber: "SOP-QUAL-20260731-0001", Title: "QC SOP", Department: "QUAL", OwnerID: owner.ID, CreatedAt: 1, UpdatedAt: 1}
	v := &store.DocumentVersion{VersionString: "v1.0", Status: store.StatusEffective, Content: "<h1>QC</h1>", ContentHash: "h"}

	r := &fakeRenderer{}
	svc := exporter.New(s, r)

	out, err := svc.Export(ctx, doc, v, owner, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-docx-bytes"), out)
	assert.Equal(t, "<h1>QC</h1>", r.lastHTML)
	assert.Equal(t, "SOP-QUAL-20260731-0001", r.lastMeta.DocumentNumber)
	assert.Equal(t, "v1.0", r.lastMeta.VersionString)
}
