// Package deps implements the dependency graph engine: the dependency data
// model, case-insensitive graph, transitive resolution, and cascading
// removal planning.
package deps

import (
	"regexp"
	"sort"
	"strings"

	"github.com/moppi-dev/moppi/pkg/errors"
)

// Operator is a version constraint operator in a dependency spec string.
type Operator string

// Supported constraint operators.
const (
	OpEqual   Operator = "=="
	OpAtLeast Operator = ">="
	OpAtMost  Operator = "<="
)

var operators = []Operator{OpEqual, OpAtLeast, OpAtMost}

var (
	nameRE      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	separatorRE = regexp.MustCompile(`[-_.]+`)
)

// Canonical returns the key form of a package name: lowercased, with runs
// of hyphens, underscores and dots collapsed to a single hyphen (PEP 503).
// "Typing_Extensions" and "typing-extensions" identify the same graph node,
// matching how the registry treats the two spellings as one package.
func Canonical(name string) string {
	return separatorRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Dependency is one tracked package together with the set of packages that
// require it. Aside from edge maintenance on NeededBy, a node is immutable
// after construction.
type Dependency struct {
	Name     string
	Version  string
	Operator Operator

	// OptionalGroup names the optional dependency group (e.g. "dev") the
	// package belongs to. Empty for plain direct dependencies. Never set
	// on indirect dependencies.
	OptionalGroup string

	// NeededBy holds the canonical names of packages that declared this
	// one as a requirement. Empty means the package is a root-level
	// (direct or optional) dependency.
	NeededBy map[string]struct{}

	// Registry provenance, populated once metadata has been fetched.
	// Absent on nodes reconstructed from the lock file.
	Sha256      string
	DownloadURL string
	Filename    string

	// RequiresDist holds the raw requirement strings from the registry.
	// Consumed once during resolution, never persisted.
	RequiresDist []string
}

// New creates a dependency node with the given display name.
func New(name string) *Dependency {
	return &Dependency{
		Name:     name,
		Operator: OpEqual,
		NeededBy: make(map[string]struct{}),
	}
}

// Key returns the canonical graph key for the node.
func (d *Dependency) Key() string { return Canonical(d.Name) }

// Indirect reports whether the package is present solely because another
// tracked package requires it.
func (d *Dependency) Indirect() bool { return len(d.NeededBy) > 0 }

// Optional reports whether the package is a root-level member of an
// optional dependency group.
func (d *Dependency) Optional() bool { return !d.Indirect() && d.OptionalGroup != "" }

// Direct reports whether the package is a plain root-level dependency.
func (d *Dependency) Direct() bool { return !d.Indirect() && d.OptionalGroup == "" }

// Spec returns the "name==1.0" form of the node.
func (d *Dependency) Spec() string {
	return d.Name + string(d.Operator) + d.Version
}

// AddNeededBy records that the package with the given canonical key
// requires this node.
func (d *Dependency) AddNeededBy(key string) {
	if d.NeededBy == nil {
		d.NeededBy = make(map[string]struct{})
	}
	d.NeededBy[key] = struct{}{}
}

// Parents returns the sorted canonical keys of all requirers.
func (d *Dependency) Parents() []string {
	keys := make([]string, 0, len(d.NeededBy))
	for k := range d.NeededBy {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseSpec parses a "name==1.0" style dependency spec as persisted in the
// lock file. The operator must be one of ==, >= or <=.
func ParseSpec(spec string) (*Dependency, error) {
	cleaned := cleanSpec(spec)
	name, op, version, found := splitOperator(cleaned)
	if !found || version == "" || !nameRE.MatchString(name) {
		return nil, errors.New(errors.ErrCodeMalformedRequirement, "malformed dependency spec %q", spec)
	}

	dep := New(name)
	dep.Version = version
	dep.Operator = op
	return dep, nil
}

// ParseRequirement parses one raw requires_dist entry from the registry.
//
// The grammar is: name [ "(" comma-separated constraints ")" ] [ ";" marker ].
// Entries carrying an environment marker are conditional and never resolved;
// for those skip is true and dep is nil. Entries that do not match the
// grammar produce a MALFORMED_REQUIREMENT error.
func ParseRequirement(raw string) (dep *Dependency, skip bool, err error) {
	if strings.Contains(raw, ";") {
		return nil, true, nil
	}

	cleaned := cleanSpec(raw)
	if cleaned == "" {
		return nil, false, errors.New(errors.ErrCodeMalformedRequirement, "empty requirement entry")
	}

	name, op, version, found := splitOperator(cleaned)
	if !found {
		if !nameRE.MatchString(cleaned) {
			return nil, false, errors.New(errors.ErrCodeMalformedRequirement, "malformed requirement %q", raw)
		}
		return New(cleaned), false, nil
	}

	// Only the first constraint of a comma-separated list is recorded;
	// the resolver always fetches the latest version anyway.
	if i := strings.Index(version, ","); i >= 0 {
		version = version[:i]
	}
	if version == "" || !nameRE.MatchString(name) {
		return nil, false, errors.New(errors.ErrCodeMalformedRequirement, "malformed requirement %q", raw)
	}

	dep = New(name)
	dep.Version = version
	dep.Operator = op
	return dep, false, nil
}

// cleanSpec strips whitespace and parentheses from a spec string.
func cleanSpec(s string) string {
	return strings.NewReplacer(" ", "", "\t", "", "(", "", ")", "").Replace(s)
}

// splitOperator splits a cleaned spec at the first constraint operator.
func splitOperator(s string) (name string, op Operator, version string, found bool) {
	idx := -1
	for _, candidate := range operators {
		if i := strings.Index(s, string(candidate)); i >= 0 && (idx < 0 || i < idx) {
			idx = i
			op = candidate
		}
	}
	if idx < 0 {
		return s, "", "", false
	}
	return s[:idx], op, s[idx+len(op):], true
}
