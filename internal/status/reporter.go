package status

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/snpmirror/internal/sqlite"
	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// BackupStatsFunc supplies current backup statistics. The backup manager
// provides one; a nil func reports empty stats.
type BackupStatsFunc func() types.BackupStats

// Reporter assembles StatusSnapshots from the store, the activity tracker,
// and the backup manager.
type Reporter struct {
	store       *sqlite.Store
	tracker     *Tracker
	backupStats BackupStatsFunc
	totals      map[types.Class]int64
	metrics     *Metrics
}

// NewReporter wires a Reporter. tracker and backupStats may be nil for
// offline queries (e.g. the status CLI command against a closed driver).
func NewReporter(store *sqlite.Store, tracker *Tracker, backupStats BackupStatsFunc, totals map[types.Class]int64, metrics *Metrics) *Reporter {
	return &Reporter{
		store:       store,
		tracker:     tracker,
		backupStats: backupStats,
		totals:      totals,
		metrics:     metrics,
	}
}

// Snapshot produces the current read-only view. Store reads run under the
// busy timeout, so a concurrent checkpoint delays the answer briefly rather
// than failing it.
func (r *Reporter) Snapshot() (types.StatusSnapshot, error) {
	snap := types.StatusSnapshot{
		Classes: make(map[types.Class]types.ClassStatus, len(types.ClassOrder)),
	}

	var remaining int64
	for _, class := range types.ClassOrder {
		count, err := r.store.Count(class)
		if err != nil {
			return types.StatusSnapshot{}, fmt.Errorf("reading %s counter: %w", class, err)
		}
		_, hasToken, err := r.store.GetProgress(types.ContinueKey(class))
		if err != nil {
			return types.StatusSnapshot{}, fmt.Errorf("reading %s token: %w", class, err)
		}
		complete, err := r.store.IsComplete(class)
		if err != nil {
			return types.StatusSnapshot{}, fmt.Errorf("reading %s completion: %w", class, err)
		}

		cs := types.ClassStatus{
			Count:    count,
			Total:    r.totals[class],
			HasToken: hasToken,
			Complete: complete,
		}
		snap.Classes[class] = cs

		if r.metrics != nil {
			r.metrics.ClassCount.WithLabelValues(string(class)).Set(float64(count))
		}
		if !complete && cs.Total > count {
			remaining += cs.Total - count
		}
	}

	if r.tracker != nil {
		snap.ItemsPerHour = r.tracker.RatePerHour()
		snap.LastActivity = r.tracker.LastActivity()
		if snap.ItemsPerHour > 0 && remaining > 0 {
			snap.ETA = time.Duration(float64(remaining)/snap.ItemsPerHour*float64(time.Hour))
		}
	}

	if r.backupStats != nil {
		snap.Backups = r.backupStats()
		if r.metrics != nil {
			r.metrics.SnapshotCount.Set(float64(snap.Backups.SnapshotCount))
			r.metrics.SnapshotBytes.Set(float64(snap.Backups.TotalSize))
		}
	}

	return snap, nil
}
