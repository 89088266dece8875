// Package store is the sqlite persistence layer of variantd: the
// content catalog, dependency edges, the append-only download history
// and the terminal-job archive.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS contents (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    kind             TEXT NOT NULL,
    version          TEXT NOT NULL DEFAULT '1.0.0',
    required_chipset TEXT NOT NULL DEFAULT '',
    min_memory       INTEGER NOT NULL DEFAULT 0,
    resolution       TEXT NOT NULL DEFAULT '',
    parent_id        TEXT NOT NULL DEFAULT '',
    conversion_state TEXT NOT NULL DEFAULT 'pending',
    path             TEXT NOT NULL DEFAULT '',
    download_url     TEXT NOT NULL DEFAULT '',
    uploaded_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contents_name ON contents(name);
CREATE INDEX IF NOT EXISTS idx_contents_parent ON contents(parent_id);

CREATE TABLE IF NOT EXISTS content_dependencies (
    content_id  TEXT NOT NULL,
    required_id TEXT NOT NULL,
    PRIMARY KEY (content_id, required_id)
);

CREATE TABLE IF NOT EXISTS download_history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    content_id TEXT NOT NULL,
    client_id  TEXT NOT NULL,
    success    INTEGER NOT NULL,
    timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_pair ON download_history(content_id, client_id);
CREATE INDEX IF NOT EXISTS idx_history_client ON download_history(client_id, id DESC);

CREATE TABLE IF NOT EXISTS job_archive (
    id           TEXT PRIMARY KEY,
    content_id   TEXT NOT NULL,
    client_id    TEXT NOT NULL,
    priority     INTEGER NOT NULL,
    status       TEXT NOT NULL,
    requested_at INTEGER NOT NULL,
    started_at   INTEGER NOT NULL DEFAULT 0,
    finished_at  INTEGER NOT NULL DEFAULT 0,
    percent      INTEGER NOT NULL,
    attempts     INTEGER NOT NULL
);
`

// Store wraps the daemon's sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and
// applies the schema. Use ":memory:" for an in-process database.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn between the executor and the sweeper.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
