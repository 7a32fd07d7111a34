package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// DBFileName is the mirror database file under the data directory.
const DBFileName = "snpedia.db"

// Store is the single durable handle to the mirror database. The process
// entry point owns its lifecycle; components receive it at construction and
// never open connections of their own.
//
// The ingestion driver is the only writer to entity tables and progress.
// The backup manager and status reporter read through the same handle; WAL
// mode plus a busy timeout keeps those reads from failing under write load.
type Store struct {
	mu   sync.RWMutex
	open bool
	db   *sql.DB
	path string
}

// NewStore creates an unopened Store. Call Open with a data directory
// before use.
func NewStore() *Store {
	return &Store{}
}

// Open creates the data directory if needed, opens (or creates) the mirror
// database, and applies the schema. Unlike a scratch database, an existing
// mirror is the source of truth and is never recreated.
// Returns ErrAlreadyOpen if called while open.
func (s *Store) Open(dataDir string) error {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return s.openPath(filepath.Join(dataDir, DBFileName))
}

// OpenPath opens a Store on an explicit database file path, bypassing the
// data-dir layout. Used to inspect snapshot files.
func OpenPath(path string) (*Store, error) {
	s := NewStore()
	if err := s.openPath(path); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) openPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return types.ErrAlreadyOpen
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// WAL lets the backup manager and status reporter read while the driver
	// writes; the busy timeout turns transient lock contention into a short
	// wait instead of an error.
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA synchronous = NORMAL;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return fmt.Errorf("apply pragma: %w", err)
		}
	}

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	s.db = db
	s.path = path
	s.open = true
	return nil
}

// Close releases the database handle. Idempotent. After Close, all
// operations return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	s.db = nil
	s.open = false
	return nil
}

// Path returns the database file path. Empty until Open.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// handle returns the live *sql.DB or ErrStoreClosed. Callers hold no lock;
// the sql package serializes access internally.
func (s *Store) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, types.ErrStoreClosed
	}
	return s.db, nil
}

// tableFor maps an entity class to its table and primary key column.
func tableFor(c types.Class) (table, idColumn string, err error) {
	switch c {
	case types.ClassSNP:
		return "snps", "rsid", nil
	case types.ClassGenotype:
		return "genotypes", "id", nil
	case types.ClassGenoset:
		return "genosets", "id", nil
	default:
		return "", "", types.ErrClassUnknown
	}
}
