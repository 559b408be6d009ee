// Package triage decides, per candidate finding, whether the vulnerability is
// plausibly exploitable and assigns the final threat level.
package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "minotaur/internal/errors"
	"minotaur/internal/metrics"
	"minotaur/internal/model"
	"minotaur/internal/telemetry"

	"golang.org/x/sync/errgroup"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultThreshold        = 0.7
	DefaultRangeOnlyCeiling = 0.5
	DefaultMaxRetries       = 2
)

const deadlineRationale = "triage not completed before the analysis deadline"

// Options configures gating and the worker pool.
type Options struct {
	Threshold        float64
	RangeOnlyCeiling float64
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries  int
	Concurrency int
	CallTimeout time.Duration
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:        DefaultThreshold,
		RangeOnlyCeiling: DefaultRangeOnlyCeiling,
		MaxRetries:       DefaultMaxRetries,
		Concurrency:      8,
		CallTimeout:      30 * time.Second,
	}
}

// Triager finalizes candidate findings.
type Triager struct {
	assessor Assessor
	opts     Options
	metrics  *metrics.Metrics
}

// New returns a triager. m may be nil.
func New(a Assessor, opts Options, m *metrics.Metrics) *Triager {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Triager{assessor: a, opts: opts, metrics: m}
}

// Triage finalizes one finding. Malformed answers and call failures are
// retried up to MaxRetries times with the same context; after that the
// finding becomes TRIAGE_ERROR.
func (t *Triager) Triage(ctx context.Context, f model.Finding, c Context) model.Finding {
	start := time.Now()
	var lastErr error
	attempts := 0

	for attempts <= t.opts.MaxRetries {
		if ctx.Err() != nil {
			break
		}
		attempts++

		callCtx, cancel := t.callContext(ctx)
		a, err := t.assessor.Assess(callCtx, c)
		cancel()
		if err == nil {
			out := f.Finalize(t.outcome(f, a, attempts), t.opts.Threshold)
			t.metrics.ObserveTriage(string(out.Verdict), time.Since(start))
			return out
		}
		lastErr = err
		telemetry.LogDebug("Triage attempt failed", "finding", f.ID(), "attempt", attempts, "error", err)
	}

	var rationale string
	switch {
	case ctx.Err() != nil:
		rationale = deadlineRationale
	default:
		terr := &apperrors.TriageError{Finding: f.ID(), Attempts: attempts, Err: lastErr}
		rationale = terr.Error()
	}
	out := f.FinalizeError(rationale, attempts, t.opts.Threshold)
	t.metrics.ObserveTriage(string(out.Verdict), time.Since(start))
	return out
}

func (t *Triager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, t.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// outcome applies the range-only ceiling and the confidence gate.
func (t *Triager) outcome(f model.Finding, a Assessment, attempts int) model.Outcome {
	conf := model.ClampConfidence(a.Confidence)
	if f.IsRangeOnly() && conf > t.opts.RangeOnlyCeiling {
		conf = t.opts.RangeOnlyCeiling
	}

	verdict := a.Verdict
	if verdict == model.VerdictExploitable && (a.Confidence < t.opts.Threshold || conf < t.opts.Threshold) {
		verdict = model.VerdictUncertain
	}

	return model.Outcome{
		Verdict:        verdict,
		Confidence:     conf,
		RawVerdict:     a.Verdict,
		RawConfidence:  a.Confidence,
		Rationale:      a.Rationale,
		Recommendation: a.Recommendation,
		Attempts:       attempts,
	}
}

// Input carries the repository signals shared by every finding.
type Input struct {
	Usage    Usage
	Overview string
}

// Result is the triager output.
type Result struct {
	Findings []model.Finding
	Issues   []model.Issue
}

// TriageAll finalizes every finding on a bounded pool. When ctx ends first,
// findings not yet finalized become TRIAGE_ERROR with a deadline rationale.
// Output order matches input order.
func (t *Triager) TriageAll(ctx context.Context, findings []model.Finding, in Input) Result {
	out := make([]model.Finding, len(findings))
	done := make([]bool, len(findings))

	var g errgroup.Group
	g.SetLimit(t.opts.Concurrency)
	for i, f := range findings {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out[i] = t.Triage(ctx, f, BuildContext(f, in.Usage, in.Overview))
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	missed := 0
	for i, f := range findings {
		if !done[i] {
			out[i] = f.FinalizeError(deadlineRationale, 0, t.opts.Threshold)
			t.metrics.ObserveTriage(string(model.VerdictTriageError), 0)
			missed++
			continue
		}
		if out[i].Verdict == model.VerdictTriageError {
			kind := model.IssueTriage
			if out[i].Rationale == deadlineRationale {
				kind = model.IssueDeadline
			}
			res.Issues = append(res.Issues, model.Issue{Kind: kind, Scope: f.ID(), Message: out[i].Rationale})
		}
	}
	if missed > 0 {
		res.Issues = append(res.Issues, model.Issue{
			Kind:    model.IssueDeadline,
			Scope:   "triage",
			Message: fmt.Sprintf("%d findings not triaged: %v", missed, deadlineErr(ctx)),
		})
	}
	res.Findings = out
	return res
}

func deadlineErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.ErrDeadlineExceeded
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return apperrors.ErrDeadlineExceeded
}
