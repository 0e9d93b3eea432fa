package docnum_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pharmadocs/dmsd/internal/docnum"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Validate(t *testing.T) {
	r := docnum.NewRegistry([]string{"QUAL", "PROD"})
	require.NoError(t, r.Validate("QUAL"))
	require.Error(t, r.Validate("NOPE"))
	require.Error(t, r.Validate("QU"))
}

func TestGenerate_SequentialPerDepartmentPerDay(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dmsd-docnum-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := store.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	day := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	var first, second string
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		first, err = docnum.Generate(ctx, s, tx, "QUAL", day)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "SOP-QUAL-20260731-0001", first)

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		second, err = docnum.Generate(ctx, s, tx, "QUAL", day)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "SOP-QUAL-20260731-0002", second)
}
