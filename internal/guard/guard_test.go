package guard

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	require.NoError(t, err)
	assert.FileExists(t, lock.Path())

	data, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	pid, err := strconv.Atoi(string(data[:len(data)-1]))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, lock.Path())
}

func TestAcquire_RefusesSecondHolder(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	require.NoError(t, err)
	defer lock.Release()

	_, err = Acquire(dir)
	require.ErrorIs(t, err, types.ErrLocked)
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()), "diagnostic names the holder")
}

func TestAcquire_ReclaimsStaleLock(t *testing.T) {
	dir := t.TempDir()

	// A pid that cannot be running: beyond the default pid_max on most
	// systems, and certainly not this test process.
	stale := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(stale, []byte("4194999\n"), 0o644))

	lock, err := Acquire(dir)
	require.NoError(t, err)
	defer lock.Release()

	data, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), strconv.Itoa(os.Getpid()))
}

func TestAcquire_ReclaimsMalformedLock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("garbage"), 0o644))

	lock, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestRelease_Idempotent(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}
