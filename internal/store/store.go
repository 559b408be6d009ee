// Package store persists completed analyses.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"minotaur/internal/report"
)

// ErrNotFound is returned when no analysis has the requested id.
var ErrNotFound = errors.New("analysis not found")

// Summary is the listing form of a stored analysis.
type Summary struct {
	ID                   string    `json:"report_id"`
	RepoURL              string    `json:"repo_url"`
	CreatedAt            time.Time `json:"analysis_timestamp"`
	DependenciesAnalyzed int       `json:"dependencies_analyzed"`
	VulnerabilitiesFound int       `json:"vulnerabilities_found"`
	RealThreats          int       `json:"real_threats"`
}

// Store defines persistent storage for analyses.
type Store interface {
	SaveAnalysis(ctx context.Context, a report.Analysis) error
	GetAnalysis(ctx context.Context, id string) (report.Analysis, error)
	// ListAnalyses returns the most recent analyses first.
	ListAnalyses(ctx context.Context, limit int) ([]Summary, error)
	DeleteAnalysis(ctx context.Context, id string) error
	Close() error
}

// StoreConfig holds configuration for the storage backend
type StoreConfig struct {
	Type             string // "sqlite" or "postgres"
	ConnectionString string // File path for SQLite, DSN for Postgres
}

const defaultSQLitePath = "minotaur.db"

// NewStore creates a new Store instance based on the provided configuration
func NewStore(config StoreConfig) (Store, error) {
	switch strings.ToLower(config.Type) {
	case "postgres", "postgresql":
		if config.ConnectionString == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return NewPostgresStore(config.ConnectionString)
	case "sqlite", "sqlite3", "":
		if config.ConnectionString == "" {
			config.ConnectionString = defaultSQLitePath
		}
		return NewSQLiteStore(config.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

func summaryOf(a report.Analysis) Summary {
	return Summary{
		ID:                   a.ID,
		RepoURL:              a.RepoURL,
		CreatedAt:            a.Timestamp,
		DependenciesAnalyzed: a.DependenciesAnalyzed,
		VulnerabilitiesFound: a.VulnerabilitiesFound,
		RealThreats:          a.RealThreats,
	}
}
