package model

import "time"

// RangeEvent is one OSV range event. Exactly one field is set.
type RangeEvent struct {
	Introduced   string `json:"introduced,omitempty"`
	Fixed        string `json:"fixed,omitempty"`
	LastAffected string `json:"last_affected,omitempty"`
	Limit        string `json:"limit,omitempty"`
}

// AffectedRange is an ordered list of events in a given version scheme
// ("SEMVER", "ECOSYSTEM" or "GIT").
type AffectedRange struct {
	Type   string       `json:"type"`
	Events []RangeEvent `json:"events"`
}

// AffectedPackage holds the version predicates of one package named by an advisory.
type AffectedPackage struct {
	Ecosystem string          `json:"ecosystem"`
	Name      string          `json:"name"`
	Ranges    []AffectedRange `json:"ranges,omitempty"`
	Versions  []string        `json:"versions,omitempty"`
}

// VulnerabilityRecord is a normalized advisory.
// Severity is never empty; unknown maps to SeverityUnknown.
type VulnerabilityRecord struct {
	ID         string            `json:"id"`
	Aliases    []string          `json:"aliases,omitempty"`
	Summary    string            `json:"summary"`
	Details    string            `json:"details,omitempty"`
	Severity   Severity          `json:"severity"`
	Affected   []AffectedPackage `json:"affected,omitempty"`
	References []string          `json:"references,omitempty"`
	Published  time.Time         `json:"published,omitempty"`
	Modified   time.Time         `json:"modified,omitempty"`
}

// AffectedFor returns the affected entries naming the given package.
func (v VulnerabilityRecord) AffectedFor(eco Ecosystem, name string) []AffectedPackage {
	want := eco.NormalizeName(name)
	var out []AffectedPackage
	for _, a := range v.Affected {
		if a.Ecosystem != "" && a.Ecosystem != eco.OSVName() {
			continue
		}
		if eco.NormalizeName(a.Name) != want {
			continue
		}
		out = append(out, a)
	}
	return out
}
