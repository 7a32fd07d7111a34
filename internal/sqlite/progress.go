package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// GetProgress returns the value for a progress key. Absent keys return
// ("", false, nil): absence is the normal first-run state, not an error.
func (s *Store) GetProgress(key string) (string, bool, error) {
	db, err := s.handle()
	if err != nil {
		return "", false, err
	}

	var value string
	err = db.QueryRow("SELECT value FROM progress WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting progress %s: %w", key, err)
	}
	return value, true, nil
}

// SetProgress durably writes one progress key. The write is committed when
// SetProgress returns.
func (s *Store) SetProgress(key, value string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.Exec(
		"INSERT OR REPLACE INTO progress (key, value) VALUES (?, ?)", key, value,
	); err != nil {
		return fmt.Errorf("setting progress %s: %w", key, err)
	}
	return nil
}

// DeleteProgress removes a progress key. Deleting an absent key is not an
// error.
func (s *Store) DeleteProgress(key string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.Exec("DELETE FROM progress WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting progress %s: %w", key, err)
	}
	return nil
}

// Checkpoint atomically records the continuation token and counter for a
// class in a single transaction. Entity rows are committed individually
// before the driver checkpoints, so a crash can only lose cursor advance,
// never report progress past what was persisted.
func (s *Store) Checkpoint(class types.Class, token string, count int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning checkpoint: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO progress (key, value) VALUES (?, ?)",
		types.ContinueKey(class), token,
	); err != nil {
		return fmt.Errorf("writing continuation token: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO progress (key, value) VALUES (?, ?)",
		types.CountKey(class), strconv.FormatInt(count, 10),
	); err != nil {
		return fmt.Errorf("writing counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing checkpoint: %w", err)
	}
	return nil
}

// Count returns the persisted-item counter for a class. Absent counters
// read as zero.
func (s *Store) Count(class types.Class) (int64, error) {
	value, ok, err := s.GetProgress(types.CountKey(class))
	if err != nil {
		return 0, err
	}
	if !ok || value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing counter for %s: %w", class, err)
	}
	return n, nil
}

// IncrementCount adds delta to a class counter, creating it at delta if
// absent. Used by the recovery engine when it persists a ledger entry.
func (s *Store) IncrementCount(class types.Class, delta int64) (int64, error) {
	n, err := s.Count(class)
	if err != nil {
		return 0, err
	}
	n += delta
	if err := s.SetProgress(types.CountKey(class), strconv.FormatInt(n, 10)); err != nil {
		return 0, err
	}
	return n, nil
}

// Counts returns the persisted-item counter for every class.
func (s *Store) Counts() (map[types.Class]int64, error) {
	counts := make(map[types.Class]int64, len(types.ClassOrder))
	for _, c := range types.ClassOrder {
		n, err := s.Count(c)
		if err != nil {
			return nil, err
		}
		counts[c] = n
	}
	return counts, nil
}

// TotalCount returns the sum of all class counters. Progressive backup
// thresholds trigger on it.
func (s *Store) TotalCount() (int64, error) {
	counts, err := s.Counts()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// MarkComplete records that a class's listing reached its final page.
func (s *Store) MarkComplete(class types.Class) error {
	return s.SetProgress(types.CompleteKey(class), "1")
}

// IsComplete reports whether a class was marked complete.
func (s *Store) IsComplete(class types.Class) (bool, error) {
	_, ok, err := s.GetProgress(types.CompleteKey(class))
	return ok, err
}
