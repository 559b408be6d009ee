package triage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"minotaur/internal/agent"
	"minotaur/internal/agent/prompts"
	"minotaur/internal/model"
)

const (
	maxPaths        = 3
	maxHops         = 6
	maxDetailsChars = 2000
)

// Usage reports whether a dependency is imported by repository sources.
// ok is false when usage could not be determined.
type Usage interface {
	IsUsed(dep model.Dependency) (used, ok bool)
}

// Context is the bounded evidence handed to an Assessor for one finding.
type Context struct {
	DependencyName  string
	Ecosystem       model.Ecosystem
	DeclaredRange   string
	ResolvedVersion string
	Depth           int
	Paths           [][]string

	VulnerabilityID string
	Aliases         []string
	Summary         string
	Details         string
	Severity        model.Severity
	MatchKind       model.MatchKind

	// Used is "yes", "no" or "unknown".
	Used         string
	RepoOverview string
}

// BuildContext assembles the context for f. usage may be nil.
func BuildContext(f model.Finding, usage Usage, overview string) Context {
	dep := f.Dependency
	vuln := f.Vulnerability

	used := "unknown"
	if usage != nil {
		if u, ok := usage.IsUsed(dep); ok {
			used = "no"
			if u {
				used = "yes"
			}
		}
	}

	return Context{
		DependencyName:  dep.Name,
		Ecosystem:       dep.Ecosystem,
		DeclaredRange:   dep.DeclaredRange,
		ResolvedVersion: dep.ResolvedVersion,
		Depth:           dep.Depth,
		Paths:           boundPaths(dep),
		VulnerabilityID: vuln.ID,
		Aliases:         vuln.Aliases,
		Summary:         vuln.Summary,
		Details:         truncateRunes(vuln.Details, maxDetailsChars),
		Severity:        vuln.Severity,
		MatchKind:       f.MatchKind,
		Used:            used,
		RepoOverview:    overview,
	}
}

func boundPaths(dep model.Dependency) [][]string {
	paths := dep.Paths
	if len(paths) == 0 && len(dep.IntroducedBy) > 0 {
		paths = [][]string{dep.IntroducedBy}
	}
	var out [][]string
	for _, p := range paths {
		if len(out) == maxPaths {
			break
		}
		if len(p) > maxHops {
			// keep the root and the hops closest to the dependency
			p = append([]string{p[0], "..."}, p[len(p)-(maxHops-2):]...)
		}
		out = append(out, p)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Prompt renders the triage prompt, bounded to maxTokens (0 disables the bound).
func (c Context) Prompt(maxTokens int) (string, error) {
	paths := "none (direct dependency)"
	if len(c.Paths) > 0 {
		parts := make([]string, len(c.Paths))
		for i, p := range c.Paths {
			parts[i] = strings.Join(p, " > ")
		}
		paths = strings.Join(parts, "; ")
	}

	orNA := func(s string) string {
		if s == "" {
			return "n/a"
		}
		return s
	}

	details := c.Details
	if details == "" {
		details = "No description available"
	}

	p, err := prompts.GetPrompt(prompts.Triage, map[string]string{
		"vulnerability_id":   c.VulnerabilityID,
		"aliases":            orNA(strings.Join(c.Aliases, ", ")),
		"severity":           c.Severity.String(),
		"summary":            orNA(c.Summary),
		"details":            details,
		"dependency_name":    c.DependencyName,
		"ecosystem":          string(c.Ecosystem),
		"declared_range":     orNA(c.DeclaredRange),
		"resolved_version":   orNA(c.ResolvedVersion),
		"match_kind":         string(c.MatchKind),
		"is_direct":          strconv.FormatBool(c.Depth == 0),
		"depth":              strconv.Itoa(c.Depth),
		"introduction_paths": paths,
		"is_used":            c.Used,
		"repo_context":       orNA(c.RepoOverview),
	})
	if err != nil {
		return "", err
	}
	if maxTokens > 0 {
		p = agent.TruncateToTokenLimit(p, maxTokens)
	}
	return p, nil
}

// Overview summarizes a repository for the reasoning step.
type Overview struct {
	Name        string
	ByEcosystem map[model.Ecosystem]int
	Direct      int
	Transitive  int
	FileTypes   []string
}

// NewOverview counts deps per ecosystem and by directness.
func NewOverview(name string, deps []model.Dependency, fileTypes []string) Overview {
	o := Overview{Name: name, ByEcosystem: map[model.Ecosystem]int{}, FileTypes: fileTypes}
	for _, d := range deps {
		o.ByEcosystem[d.Ecosystem]++
		if d.IsTransitive {
			o.Transitive++
		} else {
			o.Direct++
		}
	}
	return o
}

func (o Overview) String() string {
	var b strings.Builder
	if o.Name != "" {
		fmt.Fprintf(&b, "Repository: %s\n", o.Name)
	}
	ecos := make([]string, 0, len(o.ByEcosystem))
	for e := range o.ByEcosystem {
		ecos = append(ecos, string(e))
	}
	sort.Strings(ecos)
	for _, e := range ecos {
		fmt.Fprintf(&b, "- %s dependencies: %d\n", e, o.ByEcosystem[model.Ecosystem(e)])
	}
	fmt.Fprintf(&b, "- Direct dependencies: %d\n", o.Direct)
	fmt.Fprintf(&b, "- Transitive dependencies: %d\n", o.Transitive)
	if len(o.FileTypes) > 0 {
		fmt.Fprintf(&b, "- File types: %s\n", strings.Join(o.FileTypes, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
