package model

import "fmt"

// Dependency is one declared or transitive package requirement.
// Dependencies are created once by the extractor and never mutated afterwards.
type Dependency struct {
	Name            string     `json:"name"`
	Ecosystem       Ecosystem  `json:"ecosystem"`
	DeclaredRange   string     `json:"declared_range,omitempty"`
	ResolvedVersion string     `json:"resolved_version,omitempty"`
	IsTransitive    bool       `json:"is_transitive"`
	Depth           int        `json:"depth"`
	IntroducedBy    []string   `json:"introduced_by"`
	Paths           [][]string `json:"paths,omitempty"`
	Source          string     `json:"source,omitempty"`
}

// Key identifies the dependency within a graph: one entity per (ecosystem, name).
func (d Dependency) Key() string {
	return fmt.Sprintf("%s:%s", d.Ecosystem, d.Ecosystem.NormalizeName(d.Name))
}

// IsResolved reports whether a concrete installed version is known.
func (d Dependency) IsResolved() bool {
	return d.ResolvedVersion != ""
}

// Version returns the resolved version, or the declared range when unresolved.
func (d Dependency) Version() string {
	if d.ResolvedVersion != "" {
		return d.ResolvedVersion
	}
	return d.DeclaredRange
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s@%s (%s)", d.Name, d.Version(), d.Ecosystem)
}
