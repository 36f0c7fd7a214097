package config

import (
	"regexp"
	"sort"
	"strings"

	"github.com/moppi-dev/moppi/pkg/deps"
	"github.com/moppi-dev/moppi/pkg/errors"
)

// parentSeparator joins the segments of an indirect-dependency composite
// string: "MarkupSafe==2.1.1 :: Werkzeug==2.2.2".
const parentSeparator = " :: "

var sha256RE = regexp.MustCompile(`^[0-9a-f]{64}$`)

// document is the backend-neutral serialized form of the graph. Both the
// TOML and YAML stores marshal this structure; only the surrounding file
// layout differs.
type document struct {
	Dependencies []string            // direct: "Name==1.0"
	Optional     map[string][]string // group -> direct entries
	Indirect     []string            // "Name==1.0 :: Parent==2.0 [:: ...]"
	Lock         []string            // "Name==1.0 [:: parents] :: sha256"
}

// encodeGraph serializes the graph into a document. Entries within each
// section are sorted by name so saving is deterministic.
func encodeGraph(g *deps.Graph) *document {
	doc := &document{}

	for _, dep := range g.All() {
		switch {
		case dep.Indirect():
			doc.Indirect = append(doc.Indirect, compositeString(g, dep))
		case dep.OptionalGroup != "":
			if doc.Optional == nil {
				doc.Optional = make(map[string][]string)
			}
			doc.Optional[dep.OptionalGroup] = append(doc.Optional[dep.OptionalGroup], dep.Spec())
		default:
			doc.Dependencies = append(doc.Dependencies, dep.Spec())
		}

		if dep.Sha256 != "" {
			doc.Lock = append(doc.Lock, compositeString(g, dep)+parentSeparator+dep.Sha256)
		}
	}
	return doc
}

// compositeString renders a node and its needed-by list as one entry.
// Parents are resolved back to nodes so the entry carries their pinned
// versions; a dangling reference is never persisted.
func compositeString(g *deps.Graph, dep *deps.Dependency) string {
	parts := []string{dep.Spec()}
	for _, key := range dep.Parents() {
		if parent, ok := g.Get(key); ok {
			parts = append(parts, parent.Spec())
		}
	}
	return strings.Join(parts, parentSeparator)
}

// decodeGraph rebuilds the graph from a document, reconnecting needed-by
// references by name lookup.
func decodeGraph(doc *document) (*deps.Graph, error) {
	g := deps.NewGraph()

	for _, spec := range doc.Dependencies {
		dep, err := parseEntry(spec)
		if err != nil {
			return nil, err
		}
		if err := insertUnique(g, dep); err != nil {
			return nil, err
		}
	}

	groups := make([]string, 0, len(doc.Optional))
	for group := range doc.Optional {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		for _, spec := range doc.Optional[group] {
			dep, err := parseEntry(spec)
			if err != nil {
				return nil, err
			}
			dep.OptionalGroup = group
			if err := insertUnique(g, dep); err != nil {
				return nil, err
			}
		}
	}

	// Indirect nodes are inserted first, then edges are reconnected, so
	// parents may appear in any order within the section.
	parents := make(map[string][]string, len(doc.Indirect))
	for _, entry := range doc.Indirect {
		segments := strings.Split(entry, parentSeparator)
		if len(segments) < 2 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "indirect entry %q names no parent", entry)
		}
		dep, err := parseEntry(segments[0])
		if err != nil {
			return nil, err
		}
		for _, parentSpec := range segments[1:] {
			parent, err := parseEntry(parentSpec)
			if err != nil {
				return nil, err
			}
			parents[dep.Key()] = append(parents[dep.Key()], parent.Key())
		}
		if err := insertUnique(g, dep); err != nil {
			return nil, err
		}
	}
	for key, parentKeys := range parents {
		dep, _ := g.Get(key)
		for _, parentKey := range parentKeys {
			if !g.Contains(parentKey) {
				return nil, errors.New(errors.ErrCodeInvalidConfig,
					"indirect dependency %s references unknown package %s", key, parentKey)
			}
			dep.AddNeededBy(parentKey)
		}
	}

	if err := applyLock(g, doc.Lock); err != nil {
		return nil, err
	}
	return g, nil
}

// applyLock reattaches content hashes from dependency-lock entries.
func applyLock(g *deps.Graph, lock []string) error {
	for _, entry := range lock {
		segments := strings.Split(entry, parentSeparator)
		if len(segments) < 2 {
			return errors.New(errors.ErrCodeInvalidConfig, "lock entry %q carries no hash", entry)
		}
		hash := segments[len(segments)-1]
		if !sha256RE.MatchString(hash) {
			return errors.New(errors.ErrCodeInvalidConfig, "lock entry %q has malformed hash", entry)
		}
		dep, err := parseEntry(segments[0])
		if err != nil {
			return err
		}
		node, ok := g.Get(dep.Key())
		if !ok {
			return errors.New(errors.ErrCodeInvalidConfig, "lock entry %q names an untracked package", entry)
		}
		node.Sha256 = hash
	}
	return nil
}

// insertUnique inserts a decoded node, rejecting a name that already
// appeared in an earlier section. The graph holds exactly one node per
// canonical name; a duplicate in the file is corruption, and silently
// letting the later section win would hide it.
func insertUnique(g *deps.Graph, dep *deps.Dependency) error {
	if g.Contains(dep.Key()) {
		return errors.New(errors.ErrCodeInvalidConfig, "package %s appears in more than one section", dep.Name)
	}
	g.Insert(dep)
	return nil
}

// parseEntry parses one "name==version" lock-file entry, reporting config
// corruption instead of a registry grammar error.
func parseEntry(spec string) (*deps.Dependency, error) {
	dep, err := deps.ParseSpec(spec)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid lock entry %q", spec)
	}
	return dep, nil
}
