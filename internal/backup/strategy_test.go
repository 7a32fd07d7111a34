package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

func snapsAt(counts ...int64) []types.Snapshot {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	snaps := make([]types.Snapshot, len(counts))
	for i, c := range counts {
		snaps[i] = types.Snapshot{
			SnapshotID:   string(rune('a' + i)),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
			TriggerCount: c,
		}
	}
	return snaps
}

func TestRolling(t *testing.T) {
	s := rolling{keep: 3}
	now := time.Now()

	assert.False(t, s.ShouldSnapshot(now, 0, nil), "empty store never triggers")
	assert.True(t, s.ShouldSnapshot(now, 10, nil))
	assert.False(t, s.ShouldSnapshot(now, 10, snapsAt(10)), "no new items since last snapshot")
	assert.True(t, s.ShouldSnapshot(now, 11, snapsAt(10)))

	assert.Nil(t, s.Prune(now, snapsAt(1, 2, 3)))
	drop := s.Prune(now, snapsAt(1, 2, 3, 4, 5))
	require.Len(t, drop, 2)
	assert.Equal(t, int64(1), drop[0].TriggerCount)
	assert.Equal(t, int64(2), drop[1].TriggerCount)
}

func TestProgressive_NextThreshold(t *testing.T) {
	p := progressive{thresholds: []int64{1000, 5000, 10000}}

	assert.Equal(t, int64(1000), p.nextThreshold(0))
	assert.Equal(t, int64(1000), p.nextThreshold(999))
	assert.Equal(t, int64(5000), p.nextThreshold(1000))
	assert.Equal(t, int64(5000), p.nextThreshold(1050))
	assert.Equal(t, int64(10000), p.nextThreshold(5000))
	assert.Equal(t, int64(20000), p.nextThreshold(10000))
	assert.Equal(t, int64(30000), p.nextThreshold(20000))
	assert.Equal(t, int64(30000), p.nextThreshold(25000))
}

func TestProgressive_ShouldSnapshot(t *testing.T) {
	p := progressive{thresholds: []int64{1000, 5000, 10000}}
	now := time.Now()

	assert.False(t, p.ShouldSnapshot(now, 999, nil))
	assert.True(t, p.ShouldSnapshot(now, 1000, nil))
	assert.True(t, p.ShouldSnapshot(now, 1050, nil))
	assert.False(t, p.ShouldSnapshot(now, 1050, snapsAt(1050)), "threshold already captured")
	assert.True(t, p.ShouldSnapshot(now, 5000, snapsAt(1050)))
	assert.True(t, p.ShouldSnapshot(now, 20000, snapsAt(1050, 5000, 10000)))
}

func TestProgressive_PruneKeepsThresholdCaptures(t *testing.T) {
	p := progressive{thresholds: []int64{1000, 5000, 10000}}
	// Many snapshots in the multiples region; the ones that captured the
	// configured thresholds must survive any amount of thinning.
	snaps := snapsAt(1050, 5010, 10020, 20000, 30000, 40000, 50000, 60000, 70000, 80000)

	drop := p.Prune(time.Now(), snaps)
	dropped := make(map[int64]bool)
	for _, s := range drop {
		dropped[s.TriggerCount] = true
	}
	assert.False(t, dropped[1050], "first crossing of 1000 survives")
	assert.False(t, dropped[5010], "first crossing of 5000 survives")
	assert.False(t, dropped[10020], "first crossing of 10000 survives")
	assert.False(t, dropped[80000], "newest survives")
	assert.NotEmpty(t, drop, "old multiples thin out")
}

func TestProgressive_PruneKeepsRecentDense(t *testing.T) {
	p := progressive{thresholds: []int64{10}}
	snaps := snapsAt(100, 110, 120, 130, 140, 150)

	drop := p.Prune(time.Now(), snaps)
	for _, s := range drop {
		assert.NotContains(t, []int64{130, 140, 150}, s.TriggerCount, "three newest are never pruned")
	}
}

func TestHourly(t *testing.T) {
	s := hourly{interval: time.Hour, keep: 2}
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, s.ShouldSnapshot(base, 0, nil), "empty store never triggers")
	assert.True(t, s.ShouldSnapshot(base, 5, nil))

	snaps := snapsAt(5)
	snaps[0].CreatedAt = base
	assert.False(t, s.ShouldSnapshot(base.Add(30*time.Minute), 9, snaps))
	assert.True(t, s.ShouldSnapshot(base.Add(time.Hour), 9, snaps))

	// Retention is age-bounded: with keep 2 and an hourly interval, anything
	// older than two hours goes, however many snapshots exist.
	snaps = snapsAt(1, 2, 3)
	snaps[0].CreatedAt = base.Add(-3 * time.Hour)
	snaps[1].CreatedAt = base.Add(-90 * time.Minute)
	snaps[2].CreatedAt = base
	drop := s.Prune(base, snaps)
	require.Len(t, drop, 1)
	assert.Equal(t, int64(1), drop[0].TriggerCount)

	unbounded := hourly{interval: time.Hour}
	assert.Nil(t, unbounded.Prune(base, snaps))
}

func TestAll(t *testing.T) {
	s := all{}
	now := time.Now()
	assert.True(t, s.ShouldSnapshot(now, 1, nil))
	assert.False(t, s.ShouldSnapshot(now, 1, snapsAt(1)))
	assert.Nil(t, s.Prune(now, snapsAt(1, 2, 3, 4, 5, 6, 7, 8)))
}

func TestForConfig(t *testing.T) {
	for _, strategy := range []types.BackupStrategy{
		types.StrategyRolling, types.StrategyProgressive, types.StrategyHourly, types.StrategyAll,
	} {
		cfg := types.BackupConfig{Strategy: strategy}.WithDefaults()
		s, err := ForConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, strategy, s.Name())
	}

	_, err := ForConfig(types.BackupConfig{Strategy: "weekly"})
	assert.ErrorIs(t, err, types.ErrStrategyUnknown)
}
