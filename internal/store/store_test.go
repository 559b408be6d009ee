package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"minotaur/internal/model"
	"minotaur/internal/report"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalysis(id string, at time.Time) report.Analysis {
	f := model.NewCandidate(
		model.Dependency{Name: "lodash", Ecosystem: model.EcosystemNpm, ResolvedVersion: "4.17.15"},
		model.VulnerabilityRecord{ID: "GHSA-35jh-r3h4-6jhm", Severity: model.SeverityHigh},
		model.MatchResolved,
	).Finalize(model.Outcome{Verdict: model.VerdictExploitable, Confidence: 0.9, Rationale: "reachable"}, 0.7)

	return report.Analysis{
		ID:        id,
		RepoURL:   "https://github.com/acme/app",
		Timestamp: at,
		Duration:  1.5,
		Report:    report.Build([]model.Finding{f}, report.Meta{GeneratedFor: "acme/app", DependenciesAnalyzed: 3}),
	}
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveAnalysis(ctx, sampleAnalysis("a1", at)))

	got, err := s.GetAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "acme/app", got.GeneratedFor)
	assert.Equal(t, 1, got.RealThreats)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, model.ThreatCritical, got.Findings[0].ThreatLevel)
	assert.True(t, got.Timestamp.Equal(at))
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveAnalysis(ctx, sampleAnalysis("old", base)))
	require.NoError(t, s.SaveAnalysis(ctx, sampleAnalysis("new", base.Add(time.Hour))))

	list, err := s.ListAnalyses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, 3, list[0].DependenciesAnalyzed)

	list, err = s.ListAnalyses(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteAnalysis(ctx, "old"))
	assert.ErrorIs(t, s.DeleteAnalysis(ctx, "old"), ErrNotFound)
	_, err = s.GetAnalysis(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Upsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	a := sampleAnalysis("same", time.Now().UTC())
	require.NoError(t, s.SaveAnalysis(ctx, a))
	a.RepoURL = "https://github.com/acme/other"
	require.NoError(t, s.SaveAnalysis(ctx, a))

	list, err := s.ListAnalyses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://github.com/acme/other", list[0].RepoURL)
}

func TestSQLiteStore_RequiresID(t *testing.T) {
	s := newTestSQLite(t)
	assert.Error(t, s.SaveAnalysis(context.Background(), report.Analysis{}))
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(StoreConfig{Type: "sqlite", ConnectionString: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = NewStore(StoreConfig{Type: "postgres"})
	assert.ErrorContains(t, err, "connection string is required")

	_, err = NewStore(StoreConfig{Type: "mongo"})
	assert.ErrorContains(t, err, "unsupported store type")
}

func withMockStore(t *testing.T, fn func(*PostgresStore, sqlmock.Sqlmock)) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	fn(newPostgresStore(db), mock)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresStore_Mocked(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Migrate", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS analyses").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_analyses_created").WillReturnResult(sqlmock.NewResult(0, 0))
			assert.NoError(t, store.migrate())
		})
	})

	t.Run("SaveAnalysis Success", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectExec("INSERT INTO analyses").
				WithArgs("a1", "https://github.com/acme/app", at, 3, 1, 1, sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(1, 1))
			assert.NoError(t, store.SaveAnalysis(ctx, sampleAnalysis("a1", at)))
		})
	})

	t.Run("SaveAnalysis Error", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectExec("INSERT INTO analyses").WillReturnError(errors.New("insert error"))
			assert.ErrorContains(t, store.SaveAnalysis(ctx, sampleAnalysis("a1", at)), "insert error")
		})
	})

	t.Run("GetAnalysis NotFound", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectQuery("SELECT content FROM analyses").
				WithArgs("missing").
				WillReturnRows(sqlmock.NewRows([]string{"content"}))
			_, err := store.GetAnalysis(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	})

	t.Run("GetAnalysis Corrupt", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectQuery("SELECT content FROM analyses").
				WithArgs("bad").
				WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow("{not json"))
			_, err := store.GetAnalysis(ctx, "bad")
			assert.ErrorContains(t, err, "failed to decode")
		})
	})

	t.Run("ListAnalyses", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			rows := sqlmock.NewRows([]string{"id", "repo_url", "created_at", "dependencies_analyzed", "vulnerabilities_found", "real_threats"}).
				AddRow("a1", "https://github.com/acme/app", at, 3, 1, 1)
			mock.ExpectQuery("SELECT id, repo_url, created_at").WithArgs(50).WillReturnRows(rows)

			list, err := store.ListAnalyses(ctx, 0)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, 1, list[0].RealThreats)
		})
	})

	t.Run("DeleteAnalysis NotFound", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectExec("DELETE FROM analyses").WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 0))
			assert.ErrorIs(t, store.DeleteAnalysis(ctx, "x"), ErrNotFound)
		})
	})

	t.Run("Close", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectClose()
		assert.NoError(t, newPostgresStore(db).Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
