// Package errlog maintains the append-only fetch-failure ledger. Ingestion
// appends; only the recovery engine rewrites, and always atomically.
package errlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// FileName is the ledger file under the data directory.
const FileName = "scraper_errors.log"

// Entry is one recorded fetch failure.
type Entry struct {
	Time    time.Time
	ID      string
	Class   types.Class
	Reason  string
	Retries int
}

// Ledger is a handle to the failure log file. Append and Read may be used
// by one process at a time; the single-instance guard enforces that.
type Ledger struct {
	path string
}

// Open binds a Ledger to dataDir, writing the header block if the file does
// not exist yet.
func Open(dataDir string) (*Ledger, error) {
	l := &Ledger{path: filepath.Join(dataDir, FileName)}
	if _, err := os.Stat(l.path); err == nil {
		return l, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat ledger: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(l.path, []byte(header()), 0o644); err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}
	return l, nil
}

// Path returns the ledger file location.
func (l *Ledger) Path() string { return l.path }

func header() string {
	return fmt.Sprintf(
		"# snpmirror error ledger\n# Started: %s\n# Format: timestamp | identifier | class | reason | retries=N\n",
		time.Now().UTC().Format(time.RFC3339),
	)
}

// Append records one failure at the end of the ledger and syncs it to disk
// before returning.
func (l *Ledger) Append(e Entry) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatEntry(e)); err != nil {
		return fmt.Errorf("appending entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing ledger: %w", err)
	}
	return nil
}

// Read parses all entries. Comment lines and malformed lines are skipped;
// the ledger is written by this package but edited by operators.
func (l *Ledger) Read() ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, ok := parseEntry(line)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning ledger: %w", err)
	}
	return entries, nil
}

// Rewrite atomically replaces the ledger body with the given entries using
// the write-new-then-rename pattern, so a crash mid-recovery never loses
// unresolved entries.
func (l *Ledger) Rewrite(entries []Entry) error {
	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".errlog-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.WriteString(header()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing header: %w", err)
	}
	for _, e := range entries {
		if _, err := w.WriteString(formatEntry(e)); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}

// formatEntry renders one pipe-delimited line. The reason field is sanitized
// so it cannot break the line format.
func formatEntry(e Entry) string {
	reason := strings.ReplaceAll(e.Reason, "\n", " ")
	reason = strings.ReplaceAll(reason, "|", "/")
	return fmt.Sprintf("%s | %s | %s | %s | retries=%d\n",
		e.Time.UTC().Format(time.RFC3339), e.ID, e.Class, reason, e.Retries)
}

func parseEntry(line string) (Entry, bool) {
	parts := strings.Split(line, " | ")
	if len(parts) != 5 {
		return Entry{}, false
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Entry{}, false
	}
	retries, err := strconv.Atoi(strings.TrimPrefix(parts[4], "retries="))
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Time:    ts,
		ID:      parts[1],
		Class:   types.Class(parts[2]),
		Reason:  parts[3],
		Retries: retries,
	}, true
}
