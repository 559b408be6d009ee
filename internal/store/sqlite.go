package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	sqlStore
}

var sqliteQueries = queries{
	insert: `INSERT OR REPLACE INTO analyses (id, repo_url, created_at, dependencies_analyzed, vulnerabilities_found, real_threats, content) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	get:    `SELECT content FROM analyses WHERE id = ?`,
	list:   `SELECT id, repo_url, created_at, dependencies_analyzed, vulnerabilities_found, real_threats FROM analyses ORDER BY created_at DESC LIMIT ?`,
	delete: `DELETE FROM analyses WHERE id = ?`,
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{sqlStore{db: db, q: sqliteQueries}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		repo_url TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		dependencies_analyzed INTEGER NOT NULL DEFAULT 0,
		vulnerabilities_found INTEGER NOT NULL DEFAULT 0,
		real_threats INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
	`
	_, err := s.db.Exec(query)
	return err
}
