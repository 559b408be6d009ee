// Package match correlates dependencies with advisories and decides which
// advisories apply to the dependency's version.
package match

import (
	"context"
	"time"

	apperrors "minotaur/internal/errors"
	"minotaur/internal/metrics"
	"minotaur/internal/model"
	"minotaur/internal/version"

	"golang.org/x/sync/errgroup"
)

// AdvisorySource looks up advisories for one package.
type AdvisorySource interface {
	Query(ctx context.Context, q model.PackageQuery) ([]model.VulnerabilityRecord, error)
}

// Options bounds the matcher's concurrency and per-call latency.
type Options struct {
	Concurrency int
	CallTimeout time.Duration
}

// Result is the matcher output.
type Result struct {
	Findings []model.Finding
	Issues   []model.Issue
	// Queries is the number of distinct advisory lookups performed.
	Queries int
}

// Matcher produces candidate findings.
type Matcher struct {
	cache   *QueryCache
	opts    Options
	metrics *metrics.Metrics
}

// New returns a matcher backed by source. m may be nil.
func New(source AdvisorySource, opts Options, m *metrics.Metrics) *Matcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Matcher{cache: NewQueryCache(source), opts: opts, metrics: m}
}

type slot struct {
	findings []model.Finding
	issue    *model.Issue
}

// Match returns the candidate findings for deps in dependency order. A
// failed lookup becomes an issue for that dependency only.
func (m *Matcher) Match(ctx context.Context, deps []model.Dependency) Result {
	slots := make([]slot, len(deps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i, dep := range deps {
		g.Go(func() error {
			findings, err := m.matchOne(gctx, dep)
			if err != nil {
				merr := &apperrors.MatcherError{Dependency: dep.String(), Err: err}
				slots[i].issue = &model.Issue{Kind: model.IssueMatcher, Scope: dep.Key(), Message: merr.Error()}
				return nil
			}
			slots[i].findings = findings
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for _, s := range slots {
		res.Findings = append(res.Findings, s.findings...)
		if s.issue != nil {
			res.Issues = append(res.Issues, *s.issue)
		}
	}
	res.Queries = m.cache.Len()
	return res
}

func (m *Matcher) matchOne(ctx context.Context, dep model.Dependency) ([]model.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scheme := version.SchemeFor(dep.Ecosystem)

	resolved := dep.IsResolved()
	if resolved {
		if _, err := scheme.Parse(dep.ResolvedVersion); err != nil {
			resolved = false
		}
	}

	q := model.PackageQuery{Ecosystem: dep.Ecosystem, Name: dep.Name}
	if resolved {
		q.Version = dep.ResolvedVersion
	}

	callCtx := ctx
	if m.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.opts.CallTimeout)
		defer cancel()
	}
	recs, cached, err := m.cache.Get(callCtx, q)
	switch {
	case err != nil:
		m.metrics.ObserveAdvisoryQuery(metrics.QueryError)
		return nil, err
	case cached:
		m.metrics.ObserveAdvisoryQuery(metrics.QueryCacheHit)
	default:
		m.metrics.ObserveAdvisoryQuery(metrics.QueryOK)
	}

	var declared version.Set
	if !resolved {
		declared, _ = version.ConstraintOrAny(dep.Ecosystem, dep.DeclaredRange)
	}

	var out []model.Finding
	for _, rec := range recs {
		affected := rec.AffectedFor(dep.Ecosystem, dep.Name)
		if len(affected) == 0 {
			continue
		}
		set := version.BuildAffected(scheme, affected)
		if resolved {
			if set.Contains(scheme, dep.ResolvedVersion) {
				out = append(out, model.NewCandidate(dep, rec, model.MatchResolved))
			}
			continue
		}
		if set.Overlaps(declared) {
			out = append(out, model.NewCandidate(dep, rec, model.MatchRangeOnly))
		}
	}
	return out, nil
}
