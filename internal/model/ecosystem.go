package model

import (
	"fmt"
	"strings"
)

// Ecosystem identifies a package-management universe.
type Ecosystem string

const (
	EcosystemNpm    Ecosystem = "npm"
	EcosystemPip    Ecosystem = "pip"
	EcosystemPoetry Ecosystem = "poetry"
)

// VersionScheme names the version ordering used by an ecosystem.
type VersionScheme string

const (
	SchemeSemver VersionScheme = "semver"
	SchemePEP440 VersionScheme = "pep440"
)

// OSVName returns the ecosystem name understood by OSV-shaped advisory sources.
func (e Ecosystem) OSVName() string {
	switch e {
	case EcosystemNpm:
		return "npm"
	case EcosystemPip, EcosystemPoetry:
		return "PyPI"
	default:
		return string(e)
	}
}

// VersionScheme returns the ordering rules for versions in this ecosystem.
func (e Ecosystem) VersionScheme() VersionScheme {
	if e == EcosystemNpm {
		return SchemeSemver
	}
	return SchemePEP440
}

// NormalizeName canonicalizes a package name for comparisons within the ecosystem.
// Python names follow PEP 503 (case-insensitive, runs of -_. collapse to -).
func (e Ecosystem) NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if e.VersionScheme() != SchemePEP440 {
		return name
	}
	var b strings.Builder
	lastSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !lastSep {
				b.WriteRune('-')
			}
			lastSep = true
			continue
		}
		lastSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// ParseEcosystem parses an ecosystem name case-insensitively.
// Accepts "pypi" and "python" as pip.
func ParseEcosystem(s string) (Ecosystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "npm", "node":
		return EcosystemNpm, nil
	case "pip", "pypi", "python":
		return EcosystemPip, nil
	case "poetry":
		return EcosystemPoetry, nil
	default:
		return "", fmt.Errorf("unsupported ecosystem: %s", s)
	}
}
