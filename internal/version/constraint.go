package version

import "minotaur/internal/model"

// ParseConstraint parses a declared range in the syntax of eco.
func ParseConstraint(eco model.Ecosystem, raw string) (Set, error) {
	if eco.VersionScheme() == model.SchemeSemver {
		return ParseNpmRange(raw)
	}
	return ParsePythonSpecifier(raw)
}

// ConstraintOrAny parses raw and falls back to Any when it cannot be read.
// The boolean reports whether the fallback was taken.
func ConstraintOrAny(eco model.Ecosystem, raw string) (Set, bool) {
	s, err := ParseConstraint(eco, raw)
	if err != nil {
		return Any, true
	}
	return s, false
}
