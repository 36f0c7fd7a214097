package deps

import "sort"

// Graph is an in-memory collection of dependency nodes indexed
// case-insensitively by package name. Exactly one node exists per distinct
// canonical name. Graph is not safe for concurrent use; one invocation of
// the installer owns the graph for its full lifetime.
type Graph struct {
	nodes map[string]*Dependency
}

// NewGraph creates an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Dependency)}
}

// Contains reports whether a package with the given name is tracked.
// The lookup is case-insensitive.
func (g *Graph) Contains(name string) bool {
	_, ok := g.nodes[Canonical(name)]
	return ok
}

// Get returns the node for the given name, if present.
func (g *Graph) Get(name string) (*Dependency, bool) {
	dep, ok := g.nodes[Canonical(name)]
	return dep, ok
}

// Insert adds a node to the graph, overwriting any node with the same
// canonical name.
func (g *Graph) Insert(dep *Dependency) {
	g.nodes[dep.Key()] = dep
}

// Remove deletes the node with the given name. Callers are responsible for
// ensuring no remaining NeededBy reference points at it; removal planning
// maintains that invariant.
func (g *Graph) Remove(name string) {
	delete(g.nodes, Canonical(name))
}

// Len returns the number of tracked packages.
func (g *Graph) Len() int { return len(g.nodes) }

// Names returns the sorted canonical names of all tracked packages.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all nodes ordered by canonical name. Iteration order carries
// no semantic meaning; sorting keeps serialization deterministic.
func (g *Graph) All() []*Dependency {
	deps := make([]*Dependency, 0, len(g.nodes))
	for _, name := range g.Names() {
		deps = append(deps, g.nodes[name])
	}
	return deps
}
