// Package engine runs one analysis end to end: acquire the repository,
// extract dependencies, match advisories, triage the findings and build the
// report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"minotaur/internal/agent"
	"minotaur/internal/config"
	apperrors "minotaur/internal/errors"
	"minotaur/internal/extract"
	"minotaur/internal/match"
	"minotaur/internal/metrics"
	"minotaur/internal/model"
	"minotaur/internal/notify"
	"minotaur/internal/osv"
	"minotaur/internal/repo"
	"minotaur/internal/report"
	"minotaur/internal/telemetry"
	"minotaur/internal/triage"

	"github.com/google/uuid"
)

// Options bounds every stage of an analysis.
type Options struct {
	Extract extract.Options
	Match   match.Options
	Triage  triage.Options
	// Deadline bounds matching and triage together; 0 disables it.
	Deadline time.Duration
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Extract:  extract.DefaultOptions(),
		Match:    match.Options{Concurrency: 8, CallTimeout: 30 * time.Second},
		Triage:   triage.DefaultOptions(),
		Deadline: 10 * time.Minute,
	}
}

// OptionsFrom maps the loaded configuration onto engine options.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Extract: extract.Options{
			MaxDepth:          cfg.Analysis.MaxDepth,
			MaxDependencies:   cfg.Analysis.MaxDependencies,
			IncludeTransitive: cfg.Analysis.IncludeTransitive,
		},
		Match: match.Options{
			Concurrency: cfg.Analysis.Concurrency,
			CallTimeout: cfg.Analysis.CallTimeout,
		},
		Triage: triage.Options{
			Threshold:        cfg.Triage.ConfidenceThreshold,
			RangeOnlyCeiling: cfg.Triage.RangeOnlyCeiling,
			MaxRetries:       cfg.Triage.MaxRetries,
			Concurrency:      cfg.Analysis.Concurrency,
			CallTimeout:      cfg.Analysis.CallTimeout,
		},
		Deadline: cfg.Analysis.Deadline,
	}
}

// Engine wires the pipeline stages together. It is safe for concurrent
// analyses; each call gets its own query cache.
type Engine struct {
	source   match.AdvisorySource
	assessor triage.Assessor
	opts     Options
	metrics  *metrics.Metrics

	cloner   *repo.Cloner
	notifier *notify.Manager

	now   func() time.Time
	newID func() string
}

// New returns an engine over the given advisory source and assessor.
// m may be nil.
func New(source match.AdvisorySource, assessor triage.Assessor, opts Options, m *metrics.Metrics) *Engine {
	return &Engine{
		source:   source,
		assessor: assessor,
		opts:     opts,
		metrics:  m,
		cloner:   repo.NewCloner(0),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// FromConfig builds the production engine: the OSV client, the configured
// LLM provider, the cloner and any webhook notifiers.
func FromConfig(cfg config.Config, m *metrics.Metrics) (*Engine, error) {
	a, err := agent.NewAgent(agent.Config{
		Provider:        cfg.LLM.Provider,
		APIKey:          cfg.LLM.APIKey,
		Model:           cfg.LLM.Model,
		BaseURL:         cfg.LLM.BaseURL,
		Temperature:     cfg.LLM.Temperature,
		MaxTokens:       cfg.LLM.MaxTokens,
		Timeout:         cfg.LLM.Timeout,
		MaxPromptTokens: cfg.Triage.MaxContextTokens,
		MaxRetries:      cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning agent: %w", err)
	}

	source := osv.NewClient(osv.Config{
		BaseURL:           cfg.OSV.BaseURL,
		RequestsPerSecond: cfg.OSV.RequestsPerSecond,
		MaxAttempts:       cfg.OSV.MaxAttempts,
		Timeout:           cfg.OSV.Timeout,
	})

	e := New(source, triage.NewLLMAssessor(a, cfg.Triage.MaxContextTokens), OptionsFrom(cfg), m)
	e.cloner = repo.NewCloner(cfg.Repo.CloneTimeout)

	e.notifier = notify.NewManager(notify.Config{
		SlackWebhookURL:   cfg.Notifications.Slack.WebhookURL,
		SlackMinLevel:     cfg.Notifications.Slack.MinLevel,
		DiscordWebhookURL: cfg.Notifications.Discord.WebhookURL,
		DiscordMinLevel:   cfg.Notifications.Discord.MinLevel,
	})
	return e, nil
}

// WithNotifier replaces the notification fan-out.
func (e *Engine) WithNotifier(n *notify.Manager) *Engine {
	e.notifier = n
	return e
}

// WithCloner replaces the repository cloner.
func (e *Engine) WithCloner(c *repo.Cloner) *Engine {
	e.cloner = c
	return e
}

// Analyze acquires target, a GitHub URL or a local directory, and analyzes it.
// Cloned workspaces are removed before returning.
func (e *Engine) Analyze(ctx context.Context, target string) (report.Analysis, error) {
	if repo.IsRemote(target) {
		name, err := repo.RepoName(target)
		if err != nil {
			return report.Analysis{}, err
		}
		ws, err := e.cloner.Clone(ctx, target)
		if err != nil {
			return report.Analysis{}, err
		}
		defer ws.Cleanup()

		snap, err := repo.LoadSnapshot(ws.Dir)
		if err != nil {
			return report.Analysis{}, err
		}
		return e.AnalyzeSnapshot(ctx, target, name, snap)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return report.Analysis{}, fmt.Errorf("failed to resolve path %s: %w", target, err)
	}
	snap, err := repo.LoadSnapshot(abs)
	if err != nil {
		return report.Analysis{}, err
	}
	return e.AnalyzeSnapshot(ctx, abs, filepath.Base(abs), snap)
}

// AnalyzeSnapshot runs the pipeline over an already loaded working copy.
func (e *Engine) AnalyzeSnapshot(ctx context.Context, repoURL, name string, snap *repo.Snapshot) (report.Analysis, error) {
	in := Input{
		RepoURL:   repoURL,
		Name:      name,
		Artifacts: snap.Artifacts,
		FileTypes: snap.FileTypes,
		Issues:    snap.Issues,
	}
	if snap.Usage != nil {
		in.Usage = snap.Usage
	}
	return e.Run(ctx, in)
}

// Input is everything the pipeline reads about one repository.
type Input struct {
	RepoURL   string
	Name      string
	Artifacts []extract.Artifact
	FileTypes []string
	// Usage may be nil.
	Usage triage.Usage
	// Issues raised before extraction, such as unreadable artifacts.
	Issues []model.Issue
}

// Run executes extract, match, triage and report over in. The only failure
// is ErrNoDependenciesFound; every per-item problem is recorded in the
// report's issues instead.
func (e *Engine) Run(ctx context.Context, in Input) (report.Analysis, error) {
	start := e.now()
	telemetry.LogInfo("Starting analysis", "repo", in.RepoURL, "artifacts", len(in.Artifacts))

	ext := extract.New(e.opts.Extract).Extract(in.Artifacts)
	issues := append(append([]model.Issue(nil), in.Issues...), ext.Issues...)
	if len(ext.Dependencies) == 0 {
		telemetry.LogIssues(issues)
		e.metrics.ObserveAnalysis("no_dependencies", e.now().Sub(start), nil)
		if len(in.Issues) > 0 {
			return report.Analysis{}, fmt.Errorf("%s: %w (%d artifact(s) skipped, first: %s: %s)",
				in.Name, apperrors.ErrNoDependenciesFound, len(in.Issues), in.Issues[0].Scope, in.Issues[0].Message)
		}
		return report.Analysis{}, fmt.Errorf("%s: %w", in.Name, apperrors.ErrNoDependenciesFound)
	}
	telemetry.LogInfo("Dependencies extracted", "count", len(ext.Dependencies), "truncated", ext.Truncated)

	runCtx := ctx
	if e.opts.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.opts.Deadline)
		defer cancel()
	}

	matched := match.New(e.source, e.opts.Match, e.metrics).Match(runCtx, ext.Dependencies)
	issues = append(issues, matched.Issues...)
	telemetry.LogInfo("Advisories matched", "findings", len(matched.Findings), "queries", matched.Queries)

	overview := triage.NewOverview(in.Name, ext.Dependencies, in.FileTypes)
	triaged := triage.New(e.assessor, e.opts.Triage, e.metrics).TriageAll(runCtx, matched.Findings, triage.Input{
		Usage:    in.Usage,
		Overview: overview.String(),
	})
	issues = append(issues, triaged.Issues...)

	rep := report.Build(triaged.Findings, report.Meta{
		GeneratedFor:          in.Name,
		DependenciesAnalyzed:  len(ext.Dependencies),
		Truncated:             ext.Truncated > 0,
		TruncatedDependencies: ext.Truncated,
		Issues:                issues,
	})

	elapsed := e.now().Sub(start)
	analysis := report.Analysis{
		ID:        e.newID(),
		RepoURL:   in.RepoURL,
		Timestamp: start.UTC(),
		Duration:  elapsed.Seconds(),
		Report:    rep,
	}

	if e.notifier.Enabled() {
		analysis.Issues = append(analysis.Issues, e.notifier.NotifyReport(ctx, analysis)...)
	}

	telemetry.LogIssues(analysis.Issues)
	e.metrics.ObserveAnalysis(status(runCtx), elapsed, levelCounts(rep))
	telemetry.LogInfo("Analysis complete",
		"id", analysis.ID,
		"findings", len(rep.Findings),
		"real_threats", rep.RealThreats,
		"duration", elapsed)
	return analysis, nil
}

func status(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "deadline_exceeded"
	}
	return "completed"
}

func levelCounts(r report.Report) map[string]int {
	out := make(map[string]int, len(r.SummaryCountsByThreatLevel))
	for l, n := range r.SummaryCountsByThreatLevel {
		out[string(l)] = n
	}
	return out
}
