// Package backup produces point-in-time snapshots of the store and enforces
// a retention policy over them. Snapshots are consistent online copies
// (VACUUM INTO), never raw copies of a live database file. Trigger and
// retention decisions are pure functions over (now, counts, existing
// snapshots) so they test without real timers.
package backup

import (
	"sort"
	"time"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// Strategy decides when to snapshot and which snapshots to prune. Both
// methods are pure; callers pass snapshots sorted by creation time
// ascending.
type Strategy interface {
	Name() types.BackupStrategy
	// ShouldSnapshot reports whether a new snapshot is due.
	ShouldSnapshot(now time.Time, totalCount int64, snaps []types.Snapshot) bool
	// Prune returns the snapshots to delete.
	Prune(now time.Time, snaps []types.Snapshot) []types.Snapshot
}

// ForConfig builds the configured strategy. cfg must already be validated.
func ForConfig(cfg types.BackupConfig) (Strategy, error) {
	switch cfg.Strategy {
	case types.StrategyRolling:
		return rolling{keep: cfg.RollingKeep}, nil
	case types.StrategyProgressive:
		return progressive{thresholds: cfg.ProgressiveThresholds}, nil
	case types.StrategyHourly:
		return hourly{interval: cfg.HourlyInterval, keep: cfg.HourlyKeep}, nil
	case types.StrategyAll:
		return all{}, nil
	}
	return nil, types.ErrStrategyUnknown
}

// lastTriggerCount is the persisted total at the newest snapshot, zero when
// none exist.
func lastTriggerCount(snaps []types.Snapshot) int64 {
	if len(snaps) == 0 {
		return 0
	}
	return snaps[len(snaps)-1].TriggerCount
}

// rolling snapshots whenever the persisted count advanced since the last
// snapshot and keeps only the N most recent.
type rolling struct{ keep int }

func (rolling) Name() types.BackupStrategy { return types.StrategyRolling }

func (rolling) ShouldSnapshot(_ time.Time, totalCount int64, snaps []types.Snapshot) bool {
	return totalCount > lastTriggerCount(snaps)
}

func (r rolling) Prune(_ time.Time, snaps []types.Snapshot) []types.Snapshot {
	if len(snaps) <= r.keep {
		return nil
	}
	return snaps[:len(snaps)-r.keep]
}

// progressive snapshots when the total crosses a configured threshold;
// beyond the last threshold every further multiple of it triggers. Older
// history thins out: the newest snapshots are all kept, then only every
// power-of-two rank from the newest, plus any snapshot that captured a
// configured threshold crossing.
type progressive struct{ thresholds []int64 }

func (progressive) Name() types.BackupStrategy { return types.StrategyProgressive }

// nextThreshold returns the first trigger level strictly above last.
func (p progressive) nextThreshold(last int64) int64 {
	for _, t := range p.thresholds {
		if t > last {
			return t
		}
	}
	step := p.thresholds[len(p.thresholds)-1]
	return (last/step + 1) * step
}

func (p progressive) ShouldSnapshot(_ time.Time, totalCount int64, snaps []types.Snapshot) bool {
	return totalCount >= p.nextThreshold(lastTriggerCount(snaps))
}

const progressiveDense = 3

func (p progressive) Prune(_ time.Time, snaps []types.Snapshot) []types.Snapshot {
	// The snapshot that captured each threshold crossing (the oldest one at
	// or above the threshold) is never pruned.
	protected := make(map[string]bool, len(p.thresholds))
	for _, t := range p.thresholds {
		for _, snap := range snaps {
			if snap.TriggerCount >= t {
				protected[snap.SnapshotID] = true
				break
			}
		}
	}
	var drop []types.Snapshot
	for i, snap := range snaps {
		rank := len(snaps) - 1 - i // 0 is the newest
		if rank < progressiveDense || isPowerOfTwo(rank) || protected[snap.SnapshotID] {
			continue
		}
		drop = append(drop, snap)
	}
	return drop
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// hourly snapshots on a fixed wall-clock interval. Retention is
// age-bounded: snapshots older than keep intervals are pruned (zero keeps
// everything).
type hourly struct {
	interval time.Duration
	keep     int
}

func (hourly) Name() types.BackupStrategy { return types.StrategyHourly }

func (h hourly) ShouldSnapshot(now time.Time, totalCount int64, snaps []types.Snapshot) bool {
	if totalCount == 0 {
		return false
	}
	if len(snaps) == 0 {
		return true
	}
	return now.Sub(snaps[len(snaps)-1].CreatedAt) >= h.interval
}

func (h hourly) Prune(now time.Time, snaps []types.Snapshot) []types.Snapshot {
	if h.keep <= 0 {
		return nil
	}
	cutoff := now.Add(-time.Duration(h.keep) * h.interval)
	var drop []types.Snapshot
	for _, snap := range snaps {
		if snap.CreatedAt.Before(cutoff) {
			drop = append(drop, snap)
		}
	}
	return drop
}

// all snapshots on every count advance and never deletes.
type all struct{}

func (all) Name() types.BackupStrategy { return types.StrategyAll }

func (all) ShouldSnapshot(_ time.Time, totalCount int64, snaps []types.Snapshot) bool {
	return totalCount > lastTriggerCount(snaps)
}

func (all) Prune(time.Time, []types.Snapshot) []types.Snapshot { return nil }

// sortSnapshots orders by creation time ascending, oldest first.
func sortSnapshots(snaps []types.Snapshot) {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.Before(snaps[j].CreatedAt) })
}
