package backup

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// ManifestName is the snapshot index kept next to the snapshot files.
const ManifestName = "backups.jsonl"

// readManifest loads the snapshot index, one JSON record per line. A missing
// file is an empty archive; malformed lines are skipped.
func readManifest(dir string) ([]types.Snapshot, error) {
	f, err := os.Open(filepath.Join(dir, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	var snaps []types.Snapshot
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var snap types.Snapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}
	sortSnapshots(snaps)
	return snaps, nil
}

// writeManifest atomically rewrites the snapshot index with the temp-file,
// fsync, rename pattern.
func writeManifest(dir string, snaps []types.Snapshot) error {
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, snap := range snaps {
		rec, err := json.Marshal(snap)
		if err != nil {
			return fail(fmt.Errorf("encoding snapshot record: %w", err))
		}
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing snapshot record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing manifest: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing manifest: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, ManifestName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}
