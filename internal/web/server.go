// Package web serves analyses and stored reports over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "minotaur/internal/errors"
	"minotaur/internal/metrics"
	"minotaur/internal/repo"
	"minotaur/internal/report"
	"minotaur/internal/store"
	"minotaur/internal/telemetry"
)

// Analyzer runs one analysis for a repository URL.
type Analyzer interface {
	Analyze(ctx context.Context, target string) (report.Analysis, error)
}

// Server handles the analysis API.
type Server struct {
	analyzer Analyzer
	store    store.Store
	metrics  *metrics.Metrics
	port     int
	// Host defaults to 127.0.0.1.
	Host string
}

// NewServer creates a new API server. st and m may be nil: without a store
// analyses are not persisted and the report endpoints answer 503.
func NewServer(analyzer Analyzer, st store.Store, m *metrics.Metrics, port int) *Server {
	return &Server{
		analyzer: analyzer,
		store:    st,
		metrics:  m,
		port:     port,
		Host:     "127.0.0.1",
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/reports", s.handleListReports)
	mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	mux.HandleFunc("DELETE /api/reports/{id}", s.handleDeleteReport)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
		return s.metrics.RequestTrackingMiddleware(mux)
	}
	return mux
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		telemetry.LogInfo("Starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		telemetry.LogInfo("Shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

type analyzeRequest struct {
	RepoURL string `json:"repo_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := repo.ValidateGitHubURL(req.RepoURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.analyzer.Analyze(r.Context(), req.RepoURL)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoDependenciesFound) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		telemetry.LogError("Analysis failed", err, "repo", req.RepoURL)
		writeError(w, http.StatusInternalServerError, "analysis failed: "+err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.SaveAnalysis(r.Context(), a); err != nil {
			telemetry.LogWarn("Failed to save analysis", "id", a.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	list, err := s.store.ListAnalyses(r.Context(), limit)
	if err != nil {
		telemetry.LogError("Failed to list reports", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := r.PathValue("id")
	a, err := s.store.GetAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		telemetry.LogError("Failed to load report", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := r.PathValue("id")
	err := s.store.DeleteAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		telemetry.LogError("Failed to delete report", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "report storage is not configured")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		telemetry.LogDebug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
