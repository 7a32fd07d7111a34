package integration

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/snpmirror/internal/backup"
	"github.com/mesh-intelligence/snpmirror/internal/errlog"
	"github.com/mesh-intelligence/snpmirror/internal/fetch"
	"github.com/mesh-intelligence/snpmirror/internal/guard"
	"github.com/mesh-intelligence/snpmirror/internal/ingest"
	"github.com/mesh-intelligence/snpmirror/internal/pace"
	"github.com/mesh-intelligence/snpmirror/internal/recovery"
	"github.com/mesh-intelligence/snpmirror/internal/sqlite"
	"github.com/mesh-intelligence/snpmirror/internal/status"
	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

const testPageSize = 10

// newPipeline wires a driver over the fake wiki with a near-zero pacing
// interval and checkpoint interval 10.
func newPipeline(t *testing.T, srvURL, dataDir string) (*sqlite.Store, *errlog.Ledger, *ingest.Driver, *fetch.Client) {
	t.Helper()
	store := openStore(t, dataDir)
	ledger, err := errlog.Open(dataDir)
	require.NoError(t, err)
	client := fetch.NewClient(srvURL, "snpmirror-test", testPageSize)
	driver := ingest.New(store, client, pace.New(time.Microsecond), ledger, nil, 10, slog.Default())
	return store, ledger, driver, client
}

func TestMirror_FullRunAcrossClasses(t *testing.T) {
	wiki := newFakeWiki(testPageSize)
	wiki.addTitles(types.ClassSNP, "Rs", 25)
	wiki.addGenotypes(100, 12)
	wiki.addTitles(types.ClassGenoset, "Gs", 4)
	srv := startWiki(t, wiki)

	dataDir := t.TempDir()
	store, ledger, driver, _ := newPipeline(t, srv.URL, dataDir)

	require.NoError(t, driver.Run(context.Background()))

	counts, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(25), counts[types.ClassSNP])
	assert.Equal(t, int64(12), counts[types.ClassGenotype])
	assert.Equal(t, int64(4), counts[types.ClassGenoset])

	for _, class := range types.ClassOrder {
		complete, err := store.IsComplete(class)
		require.NoError(t, err)
		assert.True(t, complete, "%s marked complete", class)
	}

	// Genotype identifiers are decomposed on persist.
	rec, err := store.GetRecord(types.ClassGenotype, "Rs100(A;A)")
	require.NoError(t, err)
	assert.Equal(t, "Rs100", rec.SNPID)
	assert.Equal(t, "A;A", rec.Genotype)

	entries, err := ledger.Read()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A second run refetches nothing: every class is complete.
	require.NoError(t, driver.Run(context.Background()))
	assert.Equal(t, 1, wiki.requests("Rs1"))
}

func TestMirror_InterruptAndResume(t *testing.T) {
	wiki := newFakeWiki(testPageSize)
	wiki.addTitles(types.ClassSNP, "Rs", 30)
	srv := startWiki(t, wiki)

	dataDir := t.TempDir()
	store, _, driver, client := newPipeline(t, srv.URL, dataDir)

	// Cancel after the driver has persisted roughly half the items.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			count, err := store.Count(types.ClassSNP)
			if err == nil && count >= 14 {
				cancel()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	err := driver.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	interrupted, err := store.Count(types.ClassSNP)
	require.NoError(t, err)
	assert.Less(t, interrupted, int64(30))

	// A fresh driver resumes from the checkpoint and finishes the class.
	ledger2, err := errlog.Open(dataDir)
	require.NoError(t, err)
	resumed := ingest.New(store, client, pace.New(time.Microsecond), ledger2, nil, 10, slog.Default())
	require.NoError(t, resumed.Run(context.Background()))

	count, err := store.Count(types.ClassSNP)
	require.NoError(t, err)
	assert.Equal(t, int64(30), count)

	rows, err := store.RowCount(types.ClassSNP)
	require.NoError(t, err)
	assert.Equal(t, int64(30), rows, "resume produces no duplicates")
}

func TestMirror_FailureThenRecovery(t *testing.T) {
	wiki := newFakeWiki(testPageSize)
	wiki.addTitles(types.ClassSNP, "Rs", 25)
	wiki.failOnce["Rs14"] = true
	srv := startWiki(t, wiki)

	dataDir := t.TempDir()
	store, ledger, driver, client := newPipeline(t, srv.URL, dataDir)

	require.NoError(t, driver.Run(context.Background()))

	count, err := store.Count(types.ClassSNP)
	require.NoError(t, err)
	assert.Equal(t, int64(24), count, "failed item is skipped, not fatal")

	entries, err := ledger.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Rs14", entries[0].ID)

	// One recovery pass resolves the entry; the wiki answers normally now.
	engine := recovery.New(store, client, pace.New(time.Microsecond), ledger, 0, slog.Default())
	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Recovered)

	count, err = store.Count(types.ClassSNP)
	require.NoError(t, err)
	assert.Equal(t, int64(25), count)

	entries, err = ledger.Read()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMirror_BackupDuringIngestion(t *testing.T) {
	wiki := newFakeWiki(testPageSize)
	wiki.addTitles(types.ClassSNP, "Rs", 20)
	srv := startWiki(t, wiki)

	dataDir := t.TempDir()
	store, _, driver, _ := newPipeline(t, srv.URL, dataDir)

	manager, err := backup.New(store, types.BackupConfig{
		Strategy:    types.StrategyRolling,
		RollingKeep: 2,
		Dir:         filepath.Join(dataDir, "backups"),
	}, slog.Default())
	require.NoError(t, err)

	require.NoError(t, driver.Run(context.Background()))

	snap, err := manager.CreateNow(context.Background())
	require.NoError(t, err)

	// The snapshot is a consistent standalone database with all rows.
	snapStore, err := sqlite.OpenPath(snap.Path)
	require.NoError(t, err)
	defer snapStore.Close()
	rows, err := snapStore.RowCount(types.ClassSNP)
	require.NoError(t, err)
	assert.Equal(t, int64(20), rows)
	assert.Equal(t, int64(20), snap.TriggerCount)
}

func TestMirror_StatusSnapshot(t *testing.T) {
	wiki := newFakeWiki(testPageSize)
	wiki.addTitles(types.ClassSNP, "Rs", 8)
	srv := startWiki(t, wiki)

	dataDir := t.TempDir()
	store, _, driver, _ := newPipeline(t, srv.URL, dataDir)
	require.NoError(t, driver.Run(context.Background()))

	reporter := status.NewReporter(store, nil, nil, map[types.Class]int64{types.ClassSNP: 100}, nil)
	snap, err := reporter.Snapshot()
	require.NoError(t, err)

	cs := snap.Classes[types.ClassSNP]
	assert.Equal(t, int64(8), cs.Count)
	assert.Equal(t, int64(100), cs.Total)
	assert.True(t, cs.Complete)
}

func TestMirror_GuardRefusesSecondInstance(t *testing.T) {
	dataDir := t.TempDir()

	lock, err := guard.Acquire(dataDir)
	require.NoError(t, err)
	defer lock.Release()

	_, err = guard.Acquire(dataDir)
	assert.ErrorIs(t, err, types.ErrLocked)
}
