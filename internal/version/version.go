// Package version orders package versions and evaluates version ranges for
// the ecosystems the analyzer understands.
package version

import (
	"fmt"
	"strings"

	"minotaur/internal/model"

	semver "github.com/Masterminds/semver/v3"
	pep440 "github.com/aquasecurity/go-pep440-version"
)

// Version is a parsed, totally ordered version.
type Version interface {
	// Compare returns -1, 0 or 1. Versions of different schemes are
	// ordered by their string form.
	Compare(other Version) int
	String() string
}

// Scheme parses versions of one ordering family.
type Scheme interface {
	Name() model.VersionScheme
	Parse(s string) (Version, error)
}

// SchemeFor returns the version scheme used by eco.
func SchemeFor(eco model.Ecosystem) Scheme {
	if eco.VersionScheme() == model.SchemeSemver {
		return Semver
	}
	return PEP440
}

var (
	// Semver orders npm versions.
	Semver Scheme = semverScheme{}
	// PEP440 orders Python package versions.
	PEP440 Scheme = pep440Scheme{}
)

type semverScheme struct{}

func (semverScheme) Name() model.VersionScheme { return model.SchemeSemver }

func (semverScheme) Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "=v")
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid semver %q: %w", s, err)
	}
	return semverVersion{v: v}, nil
}

type semverVersion struct {
	v *semver.Version
}

func (s semverVersion) Compare(other Version) int {
	o, ok := other.(semverVersion)
	if !ok {
		return strings.Compare(s.String(), other.String())
	}
	return s.v.Compare(o.v)
}

func (s semverVersion) String() string { return s.v.String() }

type pep440Scheme struct{}

func (pep440Scheme) Name() model.VersionScheme { return model.SchemePEP440 }

func (pep440Scheme) Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	v, err := pep440.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid PEP 440 version %q: %w", s, err)
	}
	return pep440Version{v: v}, nil
}

type pep440Version struct {
	v pep440.Version
}

func (p pep440Version) Compare(other Version) int {
	o, ok := other.(pep440Version)
	if !ok {
		return strings.Compare(p.String(), other.String())
	}
	return p.v.Compare(o.v)
}

func (p pep440Version) String() string { return p.v.String() }
