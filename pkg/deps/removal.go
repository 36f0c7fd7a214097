package deps

import "github.com/moppi-dev/moppi/pkg/errors"

// PlanRemoval removes the named root dependency from the graph and cascades
// through indirect dependencies: any indirect node whose NeededBy set
// becomes empty as a result is itself removed, repeated to a fixed point.
//
// A transitive package required by two still-installed roots loses one edge
// but survives until its last requirer is gone.
//
// The target must be a root-level (direct or optional) dependency; removing
// an absent or indirect package fails with NOT_INSTALLED and leaves the
// graph untouched. The returned canonical names (target plus cascaded)
// tell the caller which on-disk artifacts to delete.
func PlanRemoval(g *Graph, name string) ([]string, error) {
	target, ok := g.Get(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotInstalled, "package %s is not installed", name)
	}
	if target.Indirect() {
		return nil, errors.New(errors.ErrCodeNotInstalled,
			"package %s is not a root dependency (needed by %d packages)", name, len(target.NeededBy))
	}

	removed := []string{target.Key()}
	g.Remove(target.Key())

	// Worklist form of the fixed-point pass: every removed name is pruned
	// from all remaining NeededBy sets, and newly orphaned indirect nodes
	// join the queue.
	queue := []string{target.Key()}
	for len(queue) > 0 {
		gone := queue[0]
		queue = queue[1:]

		for _, node := range g.All() {
			if !node.Indirect() {
				continue
			}
			if _, needed := node.NeededBy[gone]; !needed {
				continue
			}
			delete(node.NeededBy, gone)
			if len(node.NeededBy) == 0 {
				g.Remove(node.Key())
				removed = append(removed, node.Key())
				queue = append(queue, node.Key())
			}
		}
	}
	return removed, nil
}
