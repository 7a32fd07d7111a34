package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/snpmirror/internal/archive"
	"github.com/mesh-intelligence/snpmirror/internal/sqlite"
	"github.com/mesh-intelligence/snpmirror/internal/status"
	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// Manager owns the snapshot directory: creation, retention, the manifest,
// and the optional off-box mirror. Manual calls and the background monitor
// share one mutex, so create and prune are safe under overlap.
type Manager struct {
	mu       sync.Mutex
	store    *sqlite.Store
	cfg      types.BackupConfig
	strategy Strategy
	mirror   archive.Target
	metrics  *status.Metrics
	log      *slog.Logger

	lastError string

	now func() time.Time // test hook
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithMirror mirrors every snapshot to target and deletes mirrored copies
// when retention prunes them locally.
func WithMirror(target archive.Target) Option {
	return func(m *Manager) { m.mirror = target }
}

// WithMetrics publishes snapshot counts and failures.
func WithMetrics(metrics *status.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// New builds a Manager over an open store. cfg.Dir must be set; it is
// created if absent.
func New(store *sqlite.Store, cfg types.BackupConfig, log *slog.Logger, opts ...Option) (*Manager, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup: snapshot directory required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	strategy, err := ForConfig(cfg)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		store:    store,
		cfg:      cfg,
		strategy: strategy,
		log:      log.With("component", "backup_manager"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CreateNow takes a snapshot immediately, regardless of trigger conditions,
// and then applies retention.
func (m *Manager) CreateNow(ctx context.Context) (types.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps, err := readManifest(m.cfg.Dir)
	if err != nil {
		return types.Snapshot{}, err
	}
	snap, err := m.createLocked(ctx, snaps)
	if err != nil {
		return types.Snapshot{}, err
	}
	snaps = append(snaps, snap)
	if err := m.pruneLocked(ctx, snaps); err != nil {
		return snap, err
	}
	return snap, nil
}

// createLocked snapshots the store and appends the record to the manifest.
func (m *Manager) createLocked(ctx context.Context, snaps []types.Snapshot) (types.Snapshot, error) {
	now := m.now().UTC()
	id := uuid.Must(uuid.NewV7()).String()
	// The UUIDv7 head encodes the timestamp and barely changes between
	// snapshots; the random tail keeps same-second names distinct.
	name := fmt.Sprintf("snpedia-%s-%s.db", now.Format("20060102T150405Z"), id[len(id)-8:])
	path := filepath.Join(m.cfg.Dir, name)

	total, err := m.store.TotalCount()
	if err != nil {
		return types.Snapshot{}, err
	}
	if err := m.store.SnapshotTo(path); err != nil {
		return types.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return types.Snapshot{}, err
	}

	snap := types.Snapshot{
		SnapshotID:   id,
		Path:         path,
		CreatedAt:    now,
		Size:         info.Size(),
		Strategy:     m.strategy.Name(),
		TriggerCount: total,
	}
	if err := writeManifest(m.cfg.Dir, append(snaps, snap)); err != nil {
		return types.Snapshot{}, err
	}
	m.log.Info("snapshot created", "id", id, "path", path, "size", info.Size(), "trigger_count", total)

	// Mirror failures are reported, not fatal: the local snapshot stands and
	// the next trigger retries nothing (a snapshot never changes under its
	// key, so re-running create uploads fresh ones only).
	if m.mirror != nil {
		if err := m.mirrorSnapshot(ctx, snap); err != nil {
			m.log.Warn("snapshot mirror failed", "id", id, "error", err)
			m.recordFailure(err)
		}
	}
	return snap, nil
}

func (m *Manager) mirrorSnapshot(ctx context.Context, snap types.Snapshot) error {
	f, err := os.Open(snap.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	key := archive.KeyJoin(m.cfg.S3.Prefix, filepath.Base(snap.Path))
	return m.mirror.Store(ctx, key, f, snap.Size)
}

// pruneLocked applies the strategy's retention rule to snaps, deleting files
// and mirrored copies, and rewrites the manifest.
func (m *Manager) pruneLocked(ctx context.Context, snaps []types.Snapshot) error {
	drop := m.strategy.Prune(m.now(), snaps)
	if len(drop) == 0 {
		return nil
	}
	dropped := make(map[string]bool, len(drop))
	for _, snap := range drop {
		if err := m.removeSnapshot(ctx, snap); err != nil {
			m.log.Warn("prune failed", "id", snap.SnapshotID, "error", err)
			m.recordFailure(err)
			continue
		}
		dropped[snap.SnapshotID] = true
	}
	kept := snaps[:0]
	for _, snap := range snaps {
		if !dropped[snap.SnapshotID] {
			kept = append(kept, snap)
		}
	}
	return writeManifest(m.cfg.Dir, kept)
}

func (m *Manager) removeSnapshot(ctx context.Context, snap types.Snapshot) error {
	if err := os.Remove(snap.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if m.mirror != nil {
		key := archive.KeyJoin(m.cfg.S3.Prefix, filepath.Base(snap.Path))
		if err := m.mirror.Delete(ctx, key); err != nil {
			return err
		}
	}
	m.log.Info("snapshot pruned", "id", snap.SnapshotID)
	return nil
}

// List returns the archive in creation order, oldest first.
func (m *Manager) List() ([]types.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return readManifest(m.cfg.Dir)
}

// Delete removes one snapshot by ID. Returns ErrNotFound for unknown IDs.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps, err := readManifest(m.cfg.Dir)
	if err != nil {
		return err
	}
	idx := -1
	for i, snap := range snaps {
		if snap.SnapshotID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("snapshot %s: %w", id, types.ErrNotFound)
	}
	if err := m.removeSnapshot(ctx, snaps[idx]); err != nil {
		return err
	}
	return writeManifest(m.cfg.Dir, append(snaps[:idx], snaps[idx+1:]...))
}

// Stats summarizes the archive for the status interface.
func (m *Manager) Stats() types.BackupStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := types.BackupStats{LastError: m.lastError}
	snaps, err := readManifest(m.cfg.Dir)
	if err != nil {
		stats.LastError = err.Error()
		return stats
	}
	stats.SnapshotCount = len(snaps)
	for _, snap := range snaps {
		stats.TotalSize += snap.Size
	}
	if len(snaps) > 0 {
		stats.LatestAt = snaps[len(snaps)-1].CreatedAt
	}
	return stats
}

// Tick evaluates the trigger condition once and snapshots plus prunes when
// it holds. The monitor loop and tests drive it.
func (m *Manager) Tick(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps, err := readManifest(m.cfg.Dir)
	if err != nil {
		return err
	}
	total, err := m.store.TotalCount()
	if err != nil {
		return err
	}
	if !m.strategy.ShouldSnapshot(m.now(), total, snaps) {
		return nil
	}
	snap, err := m.createLocked(ctx, snaps)
	if err != nil {
		return err
	}
	return m.pruneLocked(ctx, append(snaps, snap))
}

// Monitor polls trigger conditions until ctx is canceled. Failures are
// reported through the status interface and retried on the next tick; they
// never propagate to the caller.
func (m *Manager) Monitor(ctx context.Context) {
	log := m.log.With("strategy", m.strategy.Name())
	log.Info("backup monitor started", "interval", m.cfg.MonitorInterval)
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("backup monitor stopped")
			return
		case <-ticker.C:
			if err := m.Tick(ctx); err != nil {
				log.Warn("backup trigger failed", "error", err)
				m.mu.Lock()
				m.recordFailure(err)
				m.mu.Unlock()
			} else {
				m.mu.Lock()
				m.lastError = ""
				m.mu.Unlock()
			}
		}
	}
}

// recordFailure stores the most recent error for the status interface.
// Callers hold m.mu.
func (m *Manager) recordFailure(err error) {
	m.lastError = err.Error()
	if m.metrics != nil {
		m.metrics.BackupFailures.Inc()
	}
}
