package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"critical": SeverityCritical,
		"HIGH":     SeverityHigh,
		"moderate": SeverityMedium,
		"Medium":   SeverityMedium,
		"low":      SeverityLow,
		"none":     SeverityNone,
		"":         SeverityUnknown,
	}
	for in, want := range cases {
		got, err := ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := ParseSeverity("bogus")
	assert.Error(t, err)
	assert.Equal(t, SeverityUnknown, got)
}

func TestSeverityRankIsTotal(t *testing.T) {
	order := []Severity{SeverityUnknown, SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Rank(), order[i-1].Rank())
	}
	assert.Equal(t, "UNKNOWN", Severity("").String())
}

func TestSeverityFromCVSSScore(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityFromCVSSScore(9.8))
	assert.Equal(t, SeverityHigh, SeverityFromCVSSScore(7.5))
	assert.Equal(t, SeverityMedium, SeverityFromCVSSScore(5.3))
	assert.Equal(t, SeverityLow, SeverityFromCVSSScore(3.1))
	assert.Equal(t, SeverityNone, SeverityFromCVSSScore(0))
}

func TestEcosystemNames(t *testing.T) {
	assert.Equal(t, "npm", EcosystemNpm.OSVName())
	assert.Equal(t, "PyPI", EcosystemPip.OSVName())
	assert.Equal(t, "PyPI", EcosystemPoetry.OSVName())
	assert.Equal(t, "zope-interface", EcosystemPip.NormalizeName("Zope.Interface"))
	assert.Equal(t, "typing-extensions", EcosystemPoetry.NormalizeName("typing__extensions"))
	assert.Equal(t, "@babel/core", EcosystemNpm.NormalizeName("@babel/core"))

	eco, err := ParseEcosystem("PyPI")
	require.NoError(t, err)
	assert.Equal(t, EcosystemPip, eco)
	_, err = ParseEcosystem("cargo")
	assert.Error(t, err)
}

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict("exploitable")
	require.NoError(t, err)
	assert.Equal(t, VerdictExploitable, v)

	v, err = ParseVerdict("not exploitable")
	require.NoError(t, err)
	assert.Equal(t, VerdictNotExploitable, v)

	_, err = ParseVerdict("TRIAGE_ERROR")
	assert.Error(t, err)
	_, err = ParseVerdict("maybe")
	assert.Error(t, err)
}

func TestAffectedFor(t *testing.T) {
	rec := VulnerabilityRecord{
		ID: "GHSA-1",
		Affected: []AffectedPackage{
			{Ecosystem: "PyPI", Name: "Requests"},
			{Ecosystem: "npm", Name: "requests"},
		},
	}
	got := rec.AffectedFor(EcosystemPip, "requests")
	require.Len(t, got, 1)
	assert.Equal(t, "Requests", got[0].Name)
}

func TestDeriveThreatLevelTable(t *testing.T) {
	const threshold = 0.7
	cases := []struct {
		sev     Severity
		verdict Verdict
		conf    float64
		kind    MatchKind
		want    ThreatLevel
	}{
		{SeverityCritical, VerdictExploitable, 0.9, MatchResolved, ThreatCritical},
		{SeverityHigh, VerdictExploitable, 0.7, MatchResolved, ThreatCritical},
		{SeverityMedium, VerdictExploitable, 0.8, MatchResolved, ThreatHigh},
		{SeverityLow, VerdictExploitable, 0.8, MatchResolved, ThreatMedium},
		{SeverityUnknown, VerdictExploitable, 0.8, MatchResolved, ThreatMedium},
		{SeverityNone, VerdictExploitable, 0.8, MatchResolved, ThreatLow},
		{SeverityCritical, VerdictExploitable, 0.3, MatchResolved, ThreatHigh},
		{SeverityCritical, VerdictUncertain, 0.9, MatchResolved, ThreatHigh},
		{SeverityHigh, VerdictUncertain, 0.9, MatchResolved, ThreatMedium},
		{SeverityMedium, VerdictUncertain, 0.9, MatchResolved, ThreatLow},
		{SeverityNone, VerdictUncertain, 0.9, MatchResolved, ThreatInformational},
		{SeverityCritical, VerdictUncertain, 0.5, MatchRangeOnly, ThreatInformational},
		{SeverityCritical, VerdictNotExploitable, 0.99, MatchResolved, ThreatLow},
		{SeverityCritical, VerdictNotExploitable, 0.1, MatchRangeOnly, ThreatLow},
		{SeverityCritical, VerdictTriageError, 0, MatchResolved, ThreatInformational},
	}
	for _, tc := range cases {
		got := DeriveThreatLevel(tc.sev, tc.verdict, tc.conf, threshold, tc.kind)
		assert.Equal(t, tc.want, got, "%s/%s/%.2f/%s", tc.sev, tc.verdict, tc.conf, tc.kind)
	}
}

// Exhaustive sweep: the derivation is total, deterministic, and never rates a
// below-threshold claim as if it were exploitable.
func TestDeriveThreatLevelProperties(t *testing.T) {
	const threshold = 0.7
	sevs := []Severity{SeverityUnknown, SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	verdicts := []Verdict{VerdictExploitable, VerdictNotExploitable, VerdictUncertain, VerdictTriageError}
	kinds := []MatchKind{MatchResolved, MatchRangeOnly}

	for _, sev := range sevs {
		for _, v := range verdicts {
			for _, k := range kinds {
				for i := 0; i <= 100; i++ {
					c := float64(i) / 100
					a := DeriveThreatLevel(sev, v, c, threshold, k)
					b := DeriveThreatLevel(sev, v, c, threshold, k)
					require.Equal(t, a, b)
					require.NotZero(t, a.Rank(), "level must be defined")

					if v == VerdictExploitable && c < threshold {
						assert.Equal(t, DeriveThreatLevel(sev, VerdictUncertain, c, threshold, k), a)
					}
					if v == VerdictTriageError {
						assert.Equal(t, ThreatInformational, a)
					}
					if v == VerdictNotExploitable {
						assert.Equal(t, ThreatLow, a)
					}
				}
			}
		}
	}
}

func TestFinalize(t *testing.T) {
	dep := Dependency{Name: "lodash", Ecosystem: EcosystemNpm, ResolvedVersion: "4.17.15"}
	vuln := VulnerabilityRecord{ID: "GHSA-x", Severity: SeverityCritical}
	cand := NewCandidate(dep, vuln, MatchResolved)
	assert.Equal(t, VerdictUncertain, cand.Verdict)
	assert.False(t, cand.IsFinalized())

	final := cand.Finalize(Outcome{Verdict: VerdictExploitable, Confidence: 0.9, RawVerdict: VerdictExploitable, RawConfidence: 0.9, Rationale: "reachable"}, 0.7)
	assert.True(t, final.IsFinalized())
	assert.Equal(t, ThreatCritical, final.ThreatLevel)
	assert.False(t, cand.IsFinalized(), "candidate must not be modified")

	errored := cand.Finalize(Outcome{Verdict: VerdictTriageError, Confidence: 0.8}, 0.7)
	assert.Zero(t, errored.Confidence)
	assert.Equal(t, ThreatInformational, errored.ThreatLevel)

	assert.Zero(t, ClampConfidence(math.NaN()))
	assert.Equal(t, 1.0, ClampConfidence(3))
	assert.Equal(t, "npm:lodash|GHSA-x", cand.ID())
}
