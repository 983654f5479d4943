// Package cache stores compiled programs in a SQLite database keyed by a
// hash of their source text, so unchanged scripts skip the compiler on
// subsequent runs.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"golox/pkg/bytecode"
)

// ErrMiss indicates no cached program exists for the source.
var ErrMiss = errors.New("no cached program for source")

// Store is a content-addressed cache of serialized programs. Entries are
// keyed by source hash and tagged with the wire version, so a format bump
// invalidates stale entries without any migration step.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		source_hash TEXT PRIMARY KEY,
		wire_version INTEGER NOT NULL,
		program BLOB NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key returns the cache key for a source text.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the serialized program compiled from source, or ErrMiss.
// Entries written under a different wire version are treated as misses.
func (s *Store) Get(source string) ([]byte, error) {
	var program []byte
	err := s.db.QueryRow(
		"SELECT program FROM programs WHERE source_hash = ? AND wire_version = ?",
		Key(source), bytecode.WireVersion,
	).Scan(&program)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	return program, nil
}

// Put stores the serialized program for source, replacing any previous
// entry.
func (s *Store) Put(source string, program []byte) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO programs (source_hash, wire_version, program) VALUES (?, ?, ?)",
		Key(source), bytecode.WireVersion, program,
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Count returns the number of cached programs.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Purge removes every cached program.
func (s *Store) Purge() error {
	if _, err := s.db.Exec("DELETE FROM programs"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}
