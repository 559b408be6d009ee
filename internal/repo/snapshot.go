package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"minotaur/internal/extract"
	"minotaur/internal/model"
	"minotaur/internal/telemetry"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
}

const maxSourceBytes = 1 << 20

// maxArtifactBytes caps the size of a manifest or lockfile that is read.
var maxArtifactBytes int64 = 20 << 20

// Snapshot is what an analysis needs from a working copy.
type Snapshot struct {
	Root      string
	Artifacts []extract.Artifact
	// FileTypes holds the sorted set of file extensions seen.
	FileTypes []string
	Usage     *UsageIndex
	// Issues records artifacts that were found but could not be read.
	Issues []model.Issue
}

// LoadSnapshot walks root collecting dependency artifacts, file extensions
// and the import usage index. Artifact paths are relative to root and use
// forward slashes.
func LoadSnapshot(root string) (*Snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path %s is not a directory", root)
	}

	snap := &Snapshot{Root: root, Usage: NewUsageIndex()}
	exts := map[string]bool{}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			telemetry.LogDebug("Skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != root && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)
		if ext := strings.ToLower(filepath.Ext(p)); ext != "" {
			exts[ext] = true
		}

		if extract.IsSupported(rel) {
			content, err := readLimited(p, maxArtifactBytes)
			if err != nil {
				telemetry.LogWarn("Failed to read artifact", "path", rel, "error", err)
				snap.Issues = append(snap.Issues, model.Issue{
					Kind:    model.IssueManifestParse,
					Scope:   rel,
					Message: fmt.Sprintf("artifact skipped: %v", err),
				})
				return nil
			}
			snap.Artifacts = append(snap.Artifacts, extract.NewArtifact(rel, content))
			return nil
		}

		if lang := languageOf(p); lang != langNone {
			content, err := readLimited(p, maxSourceBytes)
			if err != nil {
				return nil
			}
			snap.Usage.Scan(lang, content)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	for e := range exts {
		snap.FileTypes = append(snap.FileTypes, e)
	}
	sort.Strings(snap.FileTypes)
	return snap, nil
}

func readLimited(p string, limit int64) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("file too large (%d bytes, limit %d)", info.Size(), limit)
	}
	return os.ReadFile(p)
}
