// Package status produces the read-only snapshot polled by the dashboard:
// per-class progress, trailing fetch rate, ETA, and backup statistics. All
// queries are pull-based and never block on an in-flight fetch.
package status

import (
	"sync"
	"time"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// DefaultRateWindow is the trailing window the fetch rate is computed over.
const DefaultRateWindow = 15 * time.Minute

// Tracker accumulates activity from the ingestion driver. It is safe for
// one writer (the driver) and any number of concurrent readers.
type Tracker struct {
	mu           sync.Mutex
	window       time.Duration
	persists     []time.Time
	lastActivity time.Time
	metrics      *Metrics

	now func() time.Time // test hook
}

// NewTracker creates a Tracker with the given trailing rate window.
// Metrics may be nil when no metrics endpoint is configured.
func NewTracker(window time.Duration, metrics *Metrics) *Tracker {
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &Tracker{window: window, metrics: metrics, now: time.Now}
}

// RecordPersist notes one successfully persisted item.
func (t *Tracker) RecordPersist(class types.Class) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.lastActivity = now
	t.persists = append(t.persists, now)
	t.trimLocked(now)

	if t.metrics != nil {
		t.metrics.ItemsPersisted.WithLabelValues(string(class)).Inc()
	}
}

// RecordFailure notes one fetch failure of either kind.
func (t *Tracker) RecordFailure(class types.Class, transient bool) {
	t.mu.Lock()
	t.lastActivity = t.now()
	t.mu.Unlock()

	if t.metrics != nil {
		kind := "malformed"
		if transient {
			kind = "transient"
		}
		t.metrics.FetchFailures.WithLabelValues(string(class), kind).Inc()
	}
}

// RatePerHour returns the persist rate over the trailing window.
func (t *Tracker) RatePerHour() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.trimLocked(now)
	if len(t.persists) == 0 {
		return 0
	}

	elapsed := now.Sub(t.persists[0])
	if elapsed <= 0 {
		elapsed = time.Second
	}
	return float64(len(t.persists)) / elapsed.Hours()
}

// LastActivity returns the most recent persist or failure time, zero if the
// driver has not run.
func (t *Tracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// trimLocked drops samples older than the window. Caller holds t.mu.
func (t *Tracker) trimLocked(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.persists) && t.persists[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		t.persists = append(t.persists[:0], t.persists[i:]...)
	}
}
