package dist

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/slate/compiler"
	"github.com/chazu/slate/vm"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrNotCached is returned by Get when no entry exists for a key.
var ErrNotCached = errors.New("dist: not cached")

// SourceKey derives the cache key for a source file: the hex SHA-256 of
// the compiler version, the file name and its contents.
func SourceKey(name, source string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00", compiler.Version, FormatVersion, name)
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Store is a SQLite-backed cache of compiled code.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	log  commonlog.Logger
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS code (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, path: path, log: commonlog.GetLogger("slate.dist")}, nil
}

// Path returns the database file the store was opened on.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the raw CBOR stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM code WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("querying cache: %w", err)
	}
	return data, nil
}

// Put stores data under key, replacing any previous entry.
func (s *Store) Put(key, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO code (key, name, data, created_at) VALUES (?, ?, ?, ?)",
		key, name, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving code: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM code").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache: %w", err)
	}
	return n, nil
}

// Load fetches and decodes the code cached under key. A corrupt entry is
// reported as ErrNotCached so callers recompile.
func (s *Store) Load(v *vm.VM, key string) (vm.Value, error) {
	data, err := s.Get(key)
	if err != nil {
		return vm.Value{}, err
	}
	code, err := UnmarshalCode(v, data)
	if err != nil {
		s.log.Warningf("discarding cache entry %s: %v", shortKey(key), err)
		return vm.Value{}, ErrNotCached
	}
	s.log.Debugf("cache hit %s", shortKey(key))
	return code, nil
}

// Save encodes c and stores it under key.
func (s *Store) Save(key string, c *vm.Code) error {
	data, err := MarshalCode(c)
	if err != nil {
		return err
	}
	return s.Put(key, c.Name, data)
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
