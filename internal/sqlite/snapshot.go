package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotTo writes a byte-consistent point-in-time copy of the database to
// destPath using SQLite's online VACUUM INTO. The copy is transactionally
// consistent under concurrent write activity; a raw file copy of a live
// database would not be.
//
// Fails if destPath already exists (VACUUM INTO refuses to overwrite).
func (s *Store) SnapshotTo(destPath string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	if _, err := db.Exec("VACUUM INTO ?", destPath); err != nil {
		// Leave no partial snapshot behind.
		os.Remove(destPath)
		return fmt.Errorf("vacuum into %s: %w", destPath, err)
	}
	return nil
}
