package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"minotaur/internal/model"

	"github.com/pelletier/go-toml/v2"
)

var (
	pep508Name = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*(.*)$`)
	eggName    = regexp.MustCompile(`#egg=([A-Za-z0-9][A-Za-z0-9._-]*)`)
)

func parseRequirements(a Artifact) (manifest, error) {
	m := manifest{ecosystem: model.EcosystemPip, source: a.Path}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(bytes.NewReader(a.Content))
	var pending string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := pending + scanner.Text()
		pending = ""
		if strings.HasSuffix(line, "\\") {
			pending = strings.TrimSuffix(line, "\\") + " "
			continue
		}
		line = stripComment(line)
		if i := strings.Index(line, " --"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}

		var r requirement
		if strings.Contains(line, "://") && !strings.Contains(line, " @ ") {
			match := eggName.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			r = requirement{Name: match[1]}
		} else {
			var ok bool
			if r, ok = parsePEP508(line); !ok {
				return manifest{}, fmt.Errorf("line %d: invalid requirement %q", lineNo, line)
			}
		}

		key := model.EcosystemPip.NormalizeName(r.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.direct = append(m.direct, r)
	}
	if err := scanner.Err(); err != nil {
		return manifest{}, err
	}
	return m, nil
}

func stripComment(line string) string {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return ""
	}
	if i := strings.Index(line, " #"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// parsePEP508 reads "name[extras] specifier ; markers" or "name @ url".
func parsePEP508(s string) (requirement, bool) {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	m := pep508Name.FindStringSubmatch(s)
	if m == nil {
		return requirement{}, false
	}
	spec := strings.TrimSpace(m[3])
	if strings.HasPrefix(spec, "@") {
		spec = ""
	}
	spec = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(spec, "("), ")"))
	if spec != "" && !strings.ContainsAny(spec[:1], "<>=!~") {
		return requirement{}, false
	}
	return requirement{Name: m[1], Range: spec}, true
}

type pyProject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry *struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyProject(a Artifact) (manifest, error) {
	var data pyProject
	if err := toml.Unmarshal(a.Content, &data); err != nil {
		return manifest{}, err
	}

	if poetry := data.Tool.Poetry; poetry != nil {
		m := manifest{ecosystem: model.EcosystemPoetry, source: a.Path}
		groups := []map[string]any{poetry.Dependencies, poetry.DevDependencies}
		names := make([]string, 0, len(poetry.Group))
		for name := range poetry.Group {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			groups = append(groups, poetry.Group[name].Dependencies)
		}

		seen := make(map[string]struct{})
		for _, g := range groups {
			for _, r := range poetryRequirements(g) {
				if strings.EqualFold(r.Name, "python") {
					continue
				}
				key := model.EcosystemPoetry.NormalizeName(r.Name)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				m.direct = append(m.direct, r)
			}
		}
		return m, nil
	}

	m := manifest{ecosystem: model.EcosystemPip, source: a.Path}
	specs := append([]string(nil), data.Project.Dependencies...)
	extras := make([]string, 0, len(data.Project.OptionalDependencies))
	for name := range data.Project.OptionalDependencies {
		extras = append(extras, name)
	}
	sort.Strings(extras)
	for _, name := range extras {
		specs = append(specs, data.Project.OptionalDependencies[name]...)
	}

	seen := make(map[string]struct{})
	for _, s := range specs {
		r, ok := parsePEP508(s)
		if !ok {
			return manifest{}, fmt.Errorf("invalid dependency %q", s)
		}
		key := model.EcosystemPip.NormalizeName(r.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.direct = append(m.direct, r)
	}
	return m, nil
}

func poetryRequirements(deps map[string]any) []requirement {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]requirement, 0, len(names))
	for _, name := range names {
		out = append(out, requirement{Name: name, Range: poetryConstraint(deps[name])})
	}
	return out
}

// poetryConstraint flattens the three shapes Poetry accepts: a string, a
// table with a version key, or a list of such tables.
func poetryConstraint(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case map[string]any:
		if s, ok := c["version"].(string); ok {
			return s
		}
		return "*"
	case []any:
		var parts []string
		for _, item := range c {
			if s := poetryConstraint(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " || ")
	default:
		return "*"
	}
}

type poetryLock struct {
	Package []struct {
		Name         string         `toml:"name"`
		Version      string         `toml:"version"`
		Dependencies map[string]any `toml:"dependencies"`
	} `toml:"package"`
}

func parsePoetryLock(a Artifact) (*lockGraph, error) {
	var data poetryLock
	if err := toml.Unmarshal(a.Content, &data); err != nil {
		return nil, err
	}
	eco := model.EcosystemPoetry
	g := &lockGraph{ecosystem: eco, source: a.Path, nodes: make(map[string]*lockNode)}
	for _, p := range data.Package {
		if p.Name == "" {
			return nil, fmt.Errorf("package entry without a name")
		}
		g.nodes[eco.NormalizeName(p.Name)] = &lockNode{
			name:     p.Name,
			version:  p.Version,
			requires: poetryRequirements(p.Dependencies),
		}
	}
	g.resolve = func(_, name string) (string, bool) {
		key := eco.NormalizeName(name)
		_, ok := g.nodes[key]
		return key, ok
	}
	return g, nil
}
