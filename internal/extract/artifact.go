// Package extract turns manifest and lockfile contents into a deduplicated
// dependency list. It never touches the network or the filesystem.
package extract

import (
	"path"
	"strings"
)

// Kind identifies the format of a dependency artifact.
type Kind string

const (
	KindUnknown      Kind = ""
	KindPackageJSON  Kind = "package.json"
	KindPackageLock  Kind = "package-lock.json"
	KindRequirements Kind = "requirements.txt"
	KindPyProject    Kind = "pyproject.toml"
	KindPoetryLock   Kind = "poetry.lock"
)

// Artifact is the content of one dependency file.
type Artifact struct {
	Path    string
	Kind    Kind
	Content []byte
}

// NewArtifact builds an artifact whose kind is detected from its path.
func NewArtifact(p string, content []byte) Artifact {
	return Artifact{Path: p, Kind: DetectKind(p), Content: content}
}

// DetectKind derives the artifact kind from its file name.
func DetectKind(p string) Kind {
	name := strings.ToLower(path.Base(strings.ReplaceAll(p, "\\", "/")))
	switch {
	case name == "package.json":
		return KindPackageJSON
	case name == "package-lock.json" || name == "npm-shrinkwrap.json":
		return KindPackageLock
	case name == "pyproject.toml":
		return KindPyProject
	case name == "poetry.lock":
		return KindPoetryLock
	case strings.HasPrefix(name, "requirements") && strings.HasSuffix(name, ".txt"):
		return KindRequirements
	default:
		return KindUnknown
	}
}

// IsSupported reports whether p names an artifact the extractor can read.
func IsSupported(p string) bool {
	return DetectKind(p) != KindUnknown
}

func dirOf(p string) string {
	return path.Dir(strings.ReplaceAll(p, "\\", "/"))
}
