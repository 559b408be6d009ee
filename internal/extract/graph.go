package extract

import (
	"sort"

	"minotaur/internal/model"
)

// requirement is a dependency edge: a package name plus the range it was
// requested with.
type requirement struct {
	Name  string
	Range string
}

// manifest holds the direct requirements declared by one artifact.
type manifest struct {
	ecosystem model.Ecosystem
	source    string
	direct    []requirement
}

type lockNode struct {
	name     string
	version  string
	requires []requirement
}

// lockGraph is the installed package graph recorded by a lockfile.
type lockGraph struct {
	ecosystem model.Ecosystem
	source    string
	// roots are the requirements of the project itself, when the lock records them.
	roots []requirement
	nodes map[string]*lockNode
	// resolve finds the node a requirement of node from points to; from is
	// empty for the project root.
	resolve func(from, name string) (string, bool)
}

// inferRoots returns the nodes no other node depends on. Used when the lock
// does not record the project's own requirements.
func (g *lockGraph) inferRoots() []requirement {
	required := make(map[string]struct{})
	for id, n := range g.nodes {
		for _, r := range n.requires {
			if child, ok := g.resolve(id, r.Name); ok && child != id {
				required[child] = struct{}{}
			}
		}
	}
	var ids []string
	for id := range g.nodes {
		if _, ok := required[id]; !ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		for id := range g.nodes {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var roots []requirement
	for _, id := range ids {
		if parent, ok := g.resolve("", g.nodes[id].name); !ok || parent != id {
			// nested copies are reached through their parents
			continue
		}
		roots = append(roots, requirement{Name: g.nodes[id].name})
	}
	return roots
}

func sortedRequirements(m map[string]string) []requirement {
	out := make([]requirement, 0, len(m))
	for name, r := range m {
		out = append(out, requirement{Name: name, Range: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
