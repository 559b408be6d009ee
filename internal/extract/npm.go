package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"minotaur/internal/model"
)

type packageJSON struct {
	Name                 string            `json:"name"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

func parsePackageJSON(a Artifact) (manifest, error) {
	var data packageJSON
	if err := json.Unmarshal(a.Content, &data); err != nil {
		return manifest{}, err
	}
	m := manifest{ecosystem: model.EcosystemNpm, source: a.Path}
	seen := make(map[string]struct{})
	for _, group := range []map[string]string{data.Dependencies, data.DevDependencies, data.OptionalDependencies} {
		for _, r := range sortedRequirements(group) {
			if _, ok := seen[r.Name]; ok {
				continue
			}
			seen[r.Name] = struct{}{}
			m.direct = append(m.direct, r)
		}
	}
	return m, nil
}

type packageLock struct {
	LockfileVersion int                      `json:"lockfileVersion"`
	Packages        map[string]lockPackage   `json:"packages"`
	Dependencies    map[string]lockV1Package `json:"dependencies"`
}

// lockPackage is an entry of the v2/v3 "packages" map.
type lockPackage struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Link                 bool              `json:"link"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

// lockV1Package is an entry of the v1 nested "dependencies" tree.
type lockV1Package struct {
	Version      string                   `json:"version"`
	Requires     map[string]string        `json:"requires"`
	Dependencies map[string]lockV1Package `json:"dependencies"`
}

func parsePackageLock(a Artifact) (*lockGraph, error) {
	var data packageLock
	if err := json.Unmarshal(a.Content, &data); err != nil {
		return nil, err
	}
	g := &lockGraph{ecosystem: model.EcosystemNpm, source: a.Path, nodes: make(map[string]*lockNode)}
	g.resolve = nestedResolver(g.nodes)

	switch {
	case len(data.Packages) > 0:
		for key, p := range data.Packages {
			if key == "" {
				g.roots = sortedRequirements(mergeRanges(p.Dependencies, p.DevDependencies, p.OptionalDependencies))
				continue
			}
			if p.Link || !strings.Contains(key, "node_modules/") {
				continue
			}
			name := p.Name
			if i := strings.LastIndex(key, "node_modules/"); i >= 0 && name == "" {
				name = key[i+len("node_modules/"):]
			}
			g.nodes[key] = &lockNode{
				name:     name,
				version:  p.Version,
				requires: sortedRequirements(mergeRanges(p.Dependencies, p.OptionalDependencies, p.PeerDependencies)),
			}
		}
	case len(data.Dependencies) > 0:
		addV1Nodes(g.nodes, "", data.Dependencies)
	case data.LockfileVersion == 0:
		return nil, fmt.Errorf("not a package-lock file: missing lockfileVersion")
	}
	return g, nil
}

func addV1Nodes(nodes map[string]*lockNode, parent string, deps map[string]lockV1Package) {
	for name, p := range deps {
		key := "node_modules/" + name
		if parent != "" {
			key = parent + "/node_modules/" + name
		}
		nodes[key] = &lockNode{name: name, version: p.Version, requires: sortedRequirements(p.Requires)}
		if len(p.Dependencies) > 0 {
			addV1Nodes(nodes, key, p.Dependencies)
		}
	}
}

// nestedResolver follows node_modules resolution: the nearest enclosing
// node_modules directory that holds the name wins.
func nestedResolver(nodes map[string]*lockNode) func(from, name string) (string, bool) {
	return func(from, name string) (string, bool) {
		dir := from
		for {
			candidate := "node_modules/" + name
			if dir != "" {
				candidate = dir + "/node_modules/" + name
			}
			if _, ok := nodes[candidate]; ok {
				return candidate, true
			}
			if dir == "" {
				return "", false
			}
			if i := strings.LastIndex(dir, "/node_modules/"); i >= 0 {
				dir = dir[:i]
			} else {
				dir = ""
			}
		}
	}
}

func mergeRanges(groups ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, g := range groups {
		for name, r := range g {
			if _, ok := out[name]; !ok {
				out[name] = r
			}
		}
	}
	return out
}
