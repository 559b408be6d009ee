package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	sqlStore
}

var postgresQueries = queries{
	insert: `INSERT INTO analyses (id, repo_url, created_at, dependencies_analyzed, vulnerabilities_found, real_threats, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET repo_url = EXCLUDED.repo_url, created_at = EXCLUDED.created_at,
			dependencies_analyzed = EXCLUDED.dependencies_analyzed, vulnerabilities_found = EXCLUDED.vulnerabilities_found,
			real_threats = EXCLUDED.real_threats, content = EXCLUDED.content`,
	get:    `SELECT content FROM analyses WHERE id = $1`,
	list:   `SELECT id, repo_url, created_at, dependencies_analyzed, vulnerabilities_found, real_threats FROM analyses ORDER BY created_at DESC LIMIT $1`,
	delete: `DELETE FROM analyses WHERE id = $1`,
}

// NewPostgresStore creates a new Postgres store and applies migrations
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := newPostgresStore(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func newPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore{db: db, q: postgresQueries}}
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			repo_url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			dependencies_analyzed INTEGER NOT NULL DEFAULT 0,
			vulnerabilities_found INTEGER NOT NULL DEFAULT 0,
			real_threats INTEGER NOT NULL DEFAULT 0,
			content JSONB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}
