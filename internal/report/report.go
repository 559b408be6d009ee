// Package report aggregates finalized findings into a ranked report.
package report

import (
	"sort"

	"minotaur/internal/model"
)

// Meta carries the analysis facts a report needs besides the findings.
type Meta struct {
	GeneratedFor          string
	DependenciesAnalyzed  int
	Truncated             bool
	TruncatedDependencies int
	Issues                []model.Issue
}

// Entry is one finding as exposed to report consumers.
type Entry struct {
	Dependency      string            `json:"dependency"`
	Ecosystem       model.Ecosystem   `json:"ecosystem"`
	Version         string            `json:"version"`
	VulnerabilityID string            `json:"vulnerability_id"`
	Aliases         []string          `json:"aliases,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	Severity        model.Severity    `json:"severity"`
	Verdict         model.Verdict     `json:"verdict"`
	Confidence      float64           `json:"confidence"`
	ThreatLevel     model.ThreatLevel `json:"threat_level"`
	Rationale       string            `json:"rationale"`
	Recommendation  string            `json:"recommendation,omitempty"`
	MatchKind       model.MatchKind   `json:"match_kind"`
	Depth           int               `json:"depth"`
	IntroducedBy    []string          `json:"introduced_by"`
	References      []string          `json:"references,omitempty"`
}

// Report is the ranked result of one analysis.
type Report struct {
	GeneratedFor               string                    `json:"generated_for"`
	SummaryCountsByThreatLevel map[model.ThreatLevel]int `json:"summary_counts_by_threat_level"`
	Findings                   []Entry                   `json:"findings"`
	Truncated                  bool                      `json:"truncated"`
	TruncatedDependencies      int                       `json:"truncated_dependencies,omitempty"`
	DependenciesAnalyzed       int                       `json:"dependencies_analyzed"`
	VulnerabilitiesFound       int                       `json:"vulnerabilities_found"`
	RealThreats                int                       `json:"real_threats"`
	Issues                     []model.Issue             `json:"issues"`
}

// Build ranks findings and counts them per threat level. It only reads its
// input: identical inputs always yield identical reports.
func Build(findings []model.Finding, meta Meta) Report {
	sorted := append([]model.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	counts := make(map[model.ThreatLevel]int, len(model.ThreatLevels))
	for _, l := range model.ThreatLevels {
		counts[l] = 0
	}

	vulnIDs := map[string]struct{}{}
	entries := make([]Entry, 0, len(sorted))
	real := 0
	for _, f := range sorted {
		level := levelOf(f)
		counts[level]++
		vulnIDs[f.Vulnerability.ID] = struct{}{}
		if f.Verdict == model.VerdictExploitable {
			real++
		}
		entries = append(entries, newEntry(f, level))
	}

	issues := meta.Issues
	if issues == nil {
		issues = []model.Issue{}
	}

	return Report{
		GeneratedFor:               meta.GeneratedFor,
		SummaryCountsByThreatLevel: counts,
		Findings:                   entries,
		Truncated:                  meta.Truncated || meta.TruncatedDependencies > 0,
		TruncatedDependencies:      meta.TruncatedDependencies,
		DependenciesAnalyzed:       meta.DependenciesAnalyzed,
		VulnerabilitiesFound:       len(vulnIDs),
		RealThreats:                real,
		Issues:                     issues,
	}
}

// levelOf treats a finding that never finished triage as INFORMATIONAL.
func levelOf(f model.Finding) model.ThreatLevel {
	if f.ThreatLevel == "" {
		return model.ThreatInformational
	}
	return f.ThreatLevel
}

func less(a, b model.Finding) bool {
	if ra, rb := levelOf(a).Rank(), levelOf(b).Rank(); ra != rb {
		return ra > rb
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Dependency.Name != b.Dependency.Name {
		return a.Dependency.Name < b.Dependency.Name
	}
	if a.Vulnerability.ID != b.Vulnerability.ID {
		return a.Vulnerability.ID < b.Vulnerability.ID
	}
	if a.Dependency.Ecosystem != b.Dependency.Ecosystem {
		return a.Dependency.Ecosystem < b.Dependency.Ecosystem
	}
	return a.Dependency.Version() < b.Dependency.Version()
}

func newEntry(f model.Finding, level model.ThreatLevel) Entry {
	introduced := f.Dependency.IntroducedBy
	if introduced == nil {
		introduced = []string{}
	}
	return Entry{
		Dependency:      f.Dependency.Name,
		Ecosystem:       f.Dependency.Ecosystem,
		Version:         f.Dependency.Version(),
		VulnerabilityID: f.Vulnerability.ID,
		Aliases:         f.Vulnerability.Aliases,
		Summary:         f.Vulnerability.Summary,
		Severity:        f.Vulnerability.Severity,
		Verdict:         f.Verdict,
		Confidence:      f.Confidence,
		ThreatLevel:     level,
		Rationale:       f.Rationale,
		Recommendation:  f.Recommendation,
		MatchKind:       f.MatchKind,
		Depth:           f.Dependency.Depth,
		IntroducedBy:    introduced,
		References:      f.Vulnerability.References,
	}
}

// AtOrAbove returns the entries whose threat level ranks at least level.
func (r Report) AtOrAbove(level model.ThreatLevel) []Entry {
	var out []Entry
	for _, e := range r.Findings {
		if e.ThreatLevel.Rank() >= level.Rank() {
			out = append(out, e)
		}
	}
	return out
}
