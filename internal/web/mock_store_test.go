package web

import (
	"context"

	"minotaur/internal/report"
	"minotaur/internal/store"
)

type MockStore struct {
	SaveAnalysisFunc   func(ctx context.Context, a report.Analysis) error
	GetAnalysisFunc    func(ctx context.Context, id string) (report.Analysis, error)
	ListAnalysesFunc   func(ctx context.Context, limit int) ([]store.Summary, error)
	DeleteAnalysisFunc func(ctx context.Context, id string) error
}

func (m *MockStore) SaveAnalysis(ctx context.Context, a report.Analysis) error {
	if m.SaveAnalysisFunc != nil {
		return m.SaveAnalysisFunc(ctx, a)
	}
	return nil
}

func (m *MockStore) GetAnalysis(ctx context.Context, id string) (report.Analysis, error) {
	if m.GetAnalysisFunc != nil {
		return m.GetAnalysisFunc(ctx, id)
	}
	return report.Analysis{}, store.ErrNotFound
}

func (m *MockStore) ListAnalyses(ctx context.Context, limit int) ([]store.Summary, error) {
	if m.ListAnalysesFunc != nil {
		return m.ListAnalysesFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockStore) DeleteAnalysis(ctx context.Context, id string) error {
	if m.DeleteAnalysisFunc != nil {
		return m.DeleteAnalysisFunc(ctx, id)
	}
	return nil
}

func (m *MockStore) Close() error { return nil }
