package model

import (
	"fmt"
	"math"
	"strings"
)

// Verdict is the outcome of exploitability triage.
type Verdict string

const (
	VerdictExploitable    Verdict = "EXPLOITABLE"
	VerdictNotExploitable Verdict = "NOT_EXPLOITABLE"
	VerdictUncertain      Verdict = "UNCERTAIN"
	VerdictTriageError    Verdict = "TRIAGE_ERROR"
)

// ParseVerdict accepts the three verdicts a reasoning step may return.
// TRIAGE_ERROR is assigned internally and is never a valid parsed label.
func ParseVerdict(s string) (Verdict, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Verdict(norm) {
	case VerdictExploitable, VerdictNotExploitable, VerdictUncertain:
		return Verdict(norm), nil
	default:
		return "", fmt.Errorf("invalid verdict: %q", s)
	}
}

// MatchKind records how a finding was matched.
type MatchKind string

const (
	// MatchResolved means a concrete installed version fell inside an affected range.
	MatchResolved MatchKind = "resolved"
	// MatchRangeOnly means only the declared range overlapped an affected range.
	MatchRangeOnly MatchKind = "range-only"
)

// Finding joins one dependency with one vulnerability the matcher found applicable.
//
// The matcher creates findings with Verdict UNCERTAIN and no threat level.
// The triager finalizes each exactly once via Finalize; a finalized finding is
// treated as a value and never modified.
type Finding struct {
	Dependency    Dependency          `json:"dependency"`
	Vulnerability VulnerabilityRecord `json:"vulnerability"`
	MatchKind     MatchKind           `json:"match_kind"`
	Verdict       Verdict             `json:"verdict"`
	Confidence    float64             `json:"confidence"`
	RawVerdict    Verdict             `json:"raw_verdict,omitempty"`
	RawConfidence float64             `json:"raw_confidence,omitempty"`
	Rationale     string              `json:"rationale"`
	// Recommendation is the suggested action, when the reasoning step gave one.
	Recommendation string      `json:"recommendation,omitempty"`
	ThreatLevel    ThreatLevel `json:"threat_level,omitempty"`
	Attempts       int         `json:"attempts,omitempty"`
}

// NewCandidate returns a pre-triage finding.
func NewCandidate(dep Dependency, vuln VulnerabilityRecord, kind MatchKind) Finding {
	return Finding{
		Dependency:    dep,
		Vulnerability: vuln,
		MatchKind:     kind,
		Verdict:       VerdictUncertain,
	}
}

// ID identifies the finding by dependency key and vulnerability id.
func (f Finding) ID() string {
	return f.Dependency.Key() + "|" + f.Vulnerability.ID
}

// IsFinalized reports whether triage has completed for this finding.
func (f Finding) IsFinalized() bool {
	return f.ThreatLevel != ""
}

// IsRangeOnly reports whether the match came from a declared range only.
func (f Finding) IsRangeOnly() bool {
	return f.MatchKind == MatchRangeOnly
}

// Outcome is the triage result applied to a candidate finding.
type Outcome struct {
	Verdict        Verdict
	Confidence     float64
	RawVerdict     Verdict
	RawConfidence  float64
	Rationale      string
	Recommendation string
	Attempts       int
}

// Finalize returns a finalized copy of f. The threat level is always derived,
// never supplied. TRIAGE_ERROR forces confidence to zero.
func (f Finding) Finalize(o Outcome, threshold float64) Finding {
	out := f
	out.Verdict = o.Verdict
	out.Confidence = ClampConfidence(o.Confidence)
	if o.Verdict == VerdictTriageError {
		out.Confidence = 0
	}
	out.RawVerdict = o.RawVerdict
	out.RawConfidence = ClampConfidence(o.RawConfidence)
	out.Rationale = o.Rationale
	out.Recommendation = o.Recommendation
	out.Attempts = o.Attempts
	out.ThreatLevel = DeriveThreatLevel(f.Vulnerability.Severity, out.Verdict, out.Confidence, threshold, f.MatchKind)
	return out
}

// FinalizeError finalizes f as TRIAGE_ERROR with the given rationale.
func (f Finding) FinalizeError(rationale string, attempts int, threshold float64) Finding {
	return f.Finalize(Outcome{Verdict: VerdictTriageError, Rationale: rationale, Attempts: attempts}, threshold)
}

// ClampConfidence bounds c to [0,1]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
