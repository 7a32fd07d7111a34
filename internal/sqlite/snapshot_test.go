package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

func TestSnapshotTo(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertRecord(types.ClassSNP, "Rs1", "one", time.Now()))
	require.NoError(t, s.UpsertRecord(types.ClassSNP, "Rs2", "two", time.Now()))
	require.NoError(t, s.Checkpoint(types.ClassSNP, "tok", 2))

	dest := filepath.Join(t.TempDir(), "snap.db")
	require.NoError(t, s.SnapshotTo(dest))

	// The snapshot is a complete, independently openable database.
	copy := openRawStore(t, dest)
	defer copy.Close()

	n, err := copy.RowCount(types.ClassSNP)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := copy.Count(types.ClassSNP)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSnapshotTo_RefusesOverwrite(t *testing.T) {
	s := newTestStore(t)

	dest := filepath.Join(t.TempDir(), "snap.db")
	require.NoError(t, s.SnapshotTo(dest))
	assert.Error(t, s.SnapshotTo(dest))
}

func TestSnapshotTo_ConsistentUnderLaterWrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertRecord(types.ClassSNP, "Rs1", "one", time.Now()))

	dest := filepath.Join(t.TempDir(), "snap.db")
	require.NoError(t, s.SnapshotTo(dest))

	// Writes after the snapshot must not leak into it.
	require.NoError(t, s.UpsertRecord(types.ClassSNP, "Rs2", "two", time.Now()))

	copy := openRawStore(t, dest)
	defer copy.Close()

	n, err := copy.RowCount(types.ClassSNP)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// openRawStore opens a Store on an arbitrary database file path, bypassing
// the fixed data-dir layout. Test-only.
func openRawStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := OpenPath(path)
	require.NoError(t, err)
	return s
}
