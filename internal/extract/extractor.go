package extract

import (
	"fmt"
	"regexp"

	apperrors "minotaur/internal/errors"
	"minotaur/internal/model"
)

const maxPathsPerDependency = 10

var exactSemver = regexp.MustCompile(`^=?v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
var exactPEP440 = regexp.MustCompile(`^(===?)\s*([^,*\s|]+)$`)

// Options bounds the extraction.
type Options struct {
	MaxDepth          int
	MaxDependencies   int
	IncludeTransitive bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{MaxDepth: 10, MaxDependencies: 1000, IncludeTransitive: true}
}

// Result is the extractor output.
type Result struct {
	Dependencies []model.Dependency
	// Truncated counts distinct dependencies seen after MaxDependencies was reached.
	Truncated int
	Issues    []model.Issue
}

// Extractor builds the dependency graph from artifact contents.
type Extractor struct {
	opts Options
}

// New returns an extractor with the given bounds.
func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

type project struct {
	dir       string
	ecosystem model.Ecosystem
	manifests []manifest
	lock      *lockGraph
}

// Extract parses every artifact and returns the deduplicated dependencies in
// artifact order, each project walked breadth first.
func (e *Extractor) Extract(artifacts []Artifact) Result {
	var res Result
	var projects []*project
	byKey := make(map[string]*project)

	get := func(dir string, eco model.Ecosystem) *project {
		key := dir + "|" + string(eco)
		if p, ok := byKey[key]; ok {
			return p
		}
		p := &project{dir: dir, ecosystem: eco}
		byKey[key] = p
		projects = append(projects, p)
		return p
	}

	type parsed struct {
		dir  string
		m    *manifest
		lock *lockGraph
	}
	var items []parsed
	poetryLocked := make(map[string]bool)

	for _, a := range artifacts {
		kind := a.Kind
		if kind == KindUnknown {
			kind = DetectKind(a.Path)
		}
		dir := dirOf(a.Path)

		switch kind {
		case KindPackageJSON, KindRequirements, KindPyProject:
			m, err := parseManifest(kind, a)
			if err != nil {
				res.Issues = append(res.Issues, parseIssue(a.Path, kind, err))
				continue
			}
			items = append(items, parsed{dir: dir, m: &m})
		case KindPackageLock, KindPoetryLock:
			g, err := parseLock(kind, a)
			if err != nil {
				res.Issues = append(res.Issues, parseIssue(a.Path, kind, err))
				continue
			}
			if g.ecosystem == model.EcosystemPoetry {
				poetryLocked[dir] = true
			}
			items = append(items, parsed{dir: dir, lock: g})
		default:
			res.Issues = append(res.Issues, model.Issue{
				Kind:    model.IssueUnsupported,
				Scope:   a.Path,
				Message: "unsupported artifact",
			})
		}
	}

	// A poetry.lock pins the whole directory, whatever format declares the
	// direct requirements (PEP 621 [project], requirements.txt).
	for _, it := range items {
		if it.lock != nil {
			get(it.dir, it.lock.ecosystem).lock = it.lock
			continue
		}
		eco := it.m.ecosystem
		if eco == model.EcosystemPip && poetryLocked[it.dir] {
			eco = model.EcosystemPoetry
			it.m.ecosystem = eco
		}
		p := get(it.dir, eco)
		p.manifests = append(p.manifests, *it.m)
	}

	c := newCollector(e.opts.MaxDependencies)
	for _, p := range projects {
		e.walk(p, c)
	}

	res.Dependencies = c.deps
	res.Truncated = len(c.truncated)
	if res.Truncated > 0 {
		res.Issues = append(res.Issues, model.Issue{
			Kind:    model.IssueTruncated,
			Scope:   "extractor",
			Message: fmt.Sprintf("%d dependencies omitted after reaching the limit of %d", res.Truncated, e.opts.MaxDependencies),
		})
	}
	return res
}

func parseManifest(kind Kind, a Artifact) (manifest, error) {
	switch kind {
	case KindPackageJSON:
		return parsePackageJSON(a)
	case KindRequirements:
		return parseRequirements(a)
	default:
		return parsePyProject(a)
	}
}

func parseLock(kind Kind, a Artifact) (*lockGraph, error) {
	if kind == KindPackageLock {
		return parsePackageLock(a)
	}
	return parsePoetryLock(a)
}

func parseIssue(p string, kind Kind, err error) model.Issue {
	eco := "npm"
	if kind != KindPackageJSON && kind != KindPackageLock {
		eco = "python"
	}
	perr := &apperrors.ManifestParseError{Path: p, Ecosystem: eco, Err: err}
	return model.Issue{Kind: model.IssueManifestParse, Scope: p, Message: perr.Error()}
}

type queued struct {
	id    string
	depth int
	path  []string
}

func (e *Extractor) walk(p *project, c *collector) {
	roots, rootSource := p.roots()
	g := p.lock

	var queue []queued
	visited := make(map[string]struct{})

	for _, r := range roots {
		dep := model.Dependency{
			Name:          r.Name,
			Ecosystem:     p.ecosystem,
			DeclaredRange: r.Range,
			Source:        rootSource[r.Name],
		}
		if g != nil {
			if id, ok := g.resolve("", r.Name); ok {
				node := g.nodes[id]
				dep.Name = node.name
				dep.ResolvedVersion = node.version
				if dep.Source == "" {
					dep.Source = g.source
				}
				if _, seen := visited[id]; !seen {
					visited[id] = struct{}{}
					queue = append(queue, queued{id: id, depth: 0, path: []string{node.name}})
				}
			}
		}
		if dep.ResolvedVersion == "" {
			dep.ResolvedVersion = pinnedVersion(p.ecosystem, r.Range)
		}
		c.add(dep, nil)
	}

	if g == nil || !e.opts.IncludeTransitive {
		return
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth+1 > e.opts.MaxDepth {
			continue
		}
		for _, r := range g.nodes[cur.id].requires {
			childID, ok := g.resolve(cur.id, r.Name)
			if !ok {
				continue
			}
			child := g.nodes[childID]
			c.add(model.Dependency{
				Name:            child.name,
				Ecosystem:       p.ecosystem,
				DeclaredRange:   r.Range,
				ResolvedVersion: child.version,
				IsTransitive:    true,
				Depth:           cur.depth + 1,
				Source:          g.source,
			}, cur.path)

			if _, seen := visited[childID]; seen {
				continue
			}
			visited[childID] = struct{}{}
			path := append(append([]string(nil), cur.path...), child.name)
			queue = append(queue, queued{id: childID, depth: cur.depth + 1, path: path})
		}
	}
}

// roots returns the project's direct requirements and the artifact each was
// declared in. Manifests win over lock metadata.
func (p *project) roots() ([]requirement, map[string]string) {
	sources := make(map[string]string)
	var out []requirement
	seen := make(map[string]struct{})
	for _, m := range p.manifests {
		for _, r := range m.direct {
			key := p.ecosystem.NormalizeName(r.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			sources[r.Name] = m.source
			out = append(out, r)
		}
	}
	if len(out) > 0 || p.lock == nil {
		return out, sources
	}
	if p.lock.roots != nil {
		return p.lock.roots, sources
	}
	return p.lock.inferRoots(), sources
}

// pinnedVersion returns the concrete version an exact pin names, or "".
func pinnedVersion(eco model.Ecosystem, declared string) string {
	if eco.VersionScheme() == model.SchemeSemver {
		if exactSemver.MatchString(declared) {
			v := declared
			for len(v) > 0 && (v[0] == '=' || v[0] == 'v') {
				v = v[1:]
			}
			return v
		}
		return ""
	}
	if m := exactPEP440.FindStringSubmatch(declared); m != nil {
		return m[2]
	}
	return ""
}

type collector struct {
	max       int
	deps      []model.Dependency
	index     map[string]int
	truncated map[string]struct{}
}

func newCollector(max int) *collector {
	return &collector{max: max, index: make(map[string]int), truncated: make(map[string]struct{})}
}

// add records d reached through parents. A dependency already present keeps
// its first entry; a new path is appended and a shallower one takes over.
func (c *collector) add(d model.Dependency, parents []string) {
	path := append([]string{}, parents...)
	key := d.Key()

	if i, ok := c.index[key]; ok {
		existing := &c.deps[i]
		if !hasPath(existing.Paths, path) && len(existing.Paths) < maxPathsPerDependency {
			existing.Paths = append(existing.Paths, path)
		}
		if d.Depth < existing.Depth {
			existing.Depth = d.Depth
			existing.IntroducedBy = path
			existing.IsTransitive = d.IsTransitive
		}
		if existing.ResolvedVersion == "" && d.ResolvedVersion != "" {
			existing.ResolvedVersion = d.ResolvedVersion
		}
		if existing.DeclaredRange == "" {
			existing.DeclaredRange = d.DeclaredRange
		}
		return
	}

	if _, ok := c.truncated[key]; ok {
		return
	}
	if c.max > 0 && len(c.deps) >= c.max {
		c.truncated[key] = struct{}{}
		return
	}

	d.IntroducedBy = path
	d.Paths = [][]string{path}
	c.index[key] = len(c.deps)
	c.deps = append(c.deps, d)
}

func hasPath(paths [][]string, p []string) bool {
	for _, existing := range paths {
		if len(existing) != len(p) {
			continue
		}
		same := true
		for i := range p {
			if existing[i] != p[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}
