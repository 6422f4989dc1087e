// Package store persists the embedded glossary, the translation history and
// a translation memory in a single SQLite file.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

// ErrNoGlossary is returned by LoadGlossary before the first embed run.
var ErrNoGlossary = errors.New("no glossary has been embedded yet")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	-- glossary_meta records how the stored glossary was built
	CREATE TABLE IF NOT EXISTS glossary_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- glossary_entries holds one row per glossary term; position is the
	-- vector index ID of the entry
	CREATE TABLE IF NOT EXISTS glossary_entries (
		position INTEGER PRIMARY KEY,
		key_term TEXT NOT NULL,
		candidates TEXT NOT NULL,
		selected TEXT NOT NULL,
		source_field TEXT NOT NULL,
		degraded BOOLEAN DEFAULT FALSE,
		dims INTEGER NOT NULL,
		embedding BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS translation_requests (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		detected TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS translation_results (
		request_id TEXT PRIMARY KEY,
		translation TEXT NOT NULL,
		context TEXT NOT NULL,
		matches TEXT NOT NULL,
		usage_flags TEXT NOT NULL,
		used INTEGER NOT NULL,
		total INTEGER NOT NULL,
		latency_ms INTEGER,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (request_id) REFERENCES translation_requests(id)
	);

	-- translation_memory caches grounded translations per normalized source
	-- text; it is emptied whenever the glossary is rebuilt
	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		translation TEXT NOT NULL,
		context TEXT NOT NULL,
		matches TEXT NOT NULL,
		usage_flags TEXT NOT NULL,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, source_lang, target_lang)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_term ON glossary_entries(key_term);
	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_text, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_requests_created ON translation_requests(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
