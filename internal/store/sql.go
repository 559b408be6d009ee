package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"minotaur/internal/report"
)

// sqlStore holds the queries shared by both backends; only placeholders
// and DDL differ.
type sqlStore struct {
	db *sql.DB
	q  queries
}

type queries struct {
	insert string
	get    string
	list   string
	delete string
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// SaveAnalysis inserts or replaces an analysis.
func (s *sqlStore) SaveAnalysis(ctx context.Context, a report.Analysis) error {
	if a.ID == "" {
		return fmt.Errorf("analysis id is required")
	}
	content, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	sum := summaryOf(a)
	_, err = s.db.ExecContext(ctx, s.q.insert,
		sum.ID, sum.RepoURL, sum.CreatedAt.UTC(), sum.DependenciesAnalyzed, sum.VulnerabilitiesFound, sum.RealThreats, string(content))
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", a.ID, err)
	}
	return nil
}

// GetAnalysis loads the full analysis by id.
func (s *sqlStore) GetAnalysis(ctx context.Context, id string) (report.Analysis, error) {
	var content string
	err := s.db.QueryRowContext(ctx, s.q.get, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Analysis{}, ErrNotFound
	}
	if err != nil {
		return report.Analysis{}, fmt.Errorf("failed to load analysis %s: %w", id, err)
	}

	var a report.Analysis
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return report.Analysis{}, fmt.Errorf("failed to decode analysis %s: %w", id, err)
	}
	return a, nil
}

// ListAnalyses returns up to limit summaries, newest first.
func (s *sqlStore) ListAnalyses(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.q.list, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	results := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.RepoURL, &sum.CreatedAt, &sum.DependenciesAnalyzed, &sum.VulnerabilitiesFound, &sum.RealThreats); err != nil {
			return nil, err
		}
		results = append(results, sum)
	}
	return results, rows.Err()
}

// DeleteAnalysis removes an analysis; ErrNotFound when nothing was deleted.
func (s *sqlStore) DeleteAnalysis(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q.delete, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
