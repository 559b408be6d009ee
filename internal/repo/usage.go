package repo

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"minotaur/internal/model"
)

type language int

const (
	langNone language = iota
	langJS
	langPython
)

func languageOf(p string) language {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return langJS
	case ".py":
		return langPython
	default:
		return langNone
	}
}

var (
	// import x from 'pkg', import 'pkg', export ... from 'pkg'
	reJSImport = regexp.MustCompile(`(?m)(?:import|export)(?:[^'"` + "`" + `;]*?\sfrom)?\s*['"]([^'"]+)['"]`)
	// require('pkg'), import('pkg')
	reJSRequire = regexp.MustCompile(`(?:require|import)\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	// import pkg, import pkg.sub as x, import a, b
	rePyImport = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][\w.]*(?:\s+as\s+\w+)?(?:\s*,\s*[A-Za-z_][\w.]*(?:\s+as\s+\w+)?)*)`)
	// from pkg import x, from pkg.sub import x
	rePyFrom = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][\w.]*)\s+import\b`)
)

// UsageIndex records which packages repository sources import.
type UsageIndex struct {
	mu      sync.RWMutex
	js      map[string]bool
	python  map[string]bool
	scanned map[language]bool
}

// NewUsageIndex returns an empty index.
func NewUsageIndex() *UsageIndex {
	return &UsageIndex{js: map[string]bool{}, python: map[string]bool{}, scanned: map[language]bool{}}
}

// Scan records the imports found in one source file.
func (u *UsageIndex) Scan(lang language, content []byte) {
	src := string(content)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.scanned[lang] = true

	switch lang {
	case langJS:
		for _, re := range []*regexp.Regexp{reJSImport, reJSRequire} {
			for _, m := range re.FindAllStringSubmatch(src, -1) {
				if name := jsPackageName(m[1]); name != "" {
					u.js[name] = true
				}
			}
		}
	case langPython:
		for _, m := range rePyImport.FindAllStringSubmatch(src, -1) {
			for _, part := range strings.Split(m[1], ",") {
				mod := strings.Fields(strings.TrimSpace(part))
				if len(mod) > 0 {
					u.python[pythonTopLevel(mod[0])] = true
				}
			}
		}
		for _, m := range rePyFrom.FindAllStringSubmatch(src, -1) {
			u.python[pythonTopLevel(m[1])] = true
		}
	}
}

// jsPackageName maps a module specifier to its package name; relative and
// node: specifiers yield "".
func jsPackageName(spec string) string {
	if spec == "" || strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") || strings.Contains(spec, ":") {
		return ""
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 {
			return ""
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func pythonTopLevel(mod string) string {
	top, _, _ := strings.Cut(mod, ".")
	return strings.ToLower(top)
}

// pythonModuleName guesses the import name of a distribution.
func pythonModuleName(dist string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(model.EcosystemPip.NormalizeName(dist))
}

// IsUsed reports whether dep is imported by any scanned source. ok is false
// when no source file of the dependency's language was scanned.
func (u *UsageIndex) IsUsed(dep model.Dependency) (used, ok bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	switch dep.Ecosystem.VersionScheme() {
	case model.SchemeSemver:
		if !u.scanned[langJS] {
			return false, false
		}
		return u.js[dep.Name], true
	default:
		if !u.scanned[langPython] {
			return false, false
		}
		name := pythonModuleName(dep.Name)
		if u.python[name] {
			return true, true
		}
		// python-dateutil is imported as dateutil
		return u.python[strings.TrimPrefix(name, "python_")], true
	}
}
