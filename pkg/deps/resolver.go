package deps

import (
	"context"

	"github.com/moppi-dev/moppi/pkg/errors"
)

// PackageMetadata holds metadata fetched from a package registry.
// All fields except RequiresDist are validated non-empty at the registry
// client boundary, so the resolver never handles partially-shaped data.
type PackageMetadata struct {
	Name         string   // Display name as reported by the registry
	Version      string   // Latest published version
	DownloadURL  string   // Artifact download URL
	Filename     string   // Artifact filename
	Sha256       string   // Artifact content hash
	RequiresDist []string // Raw requirement strings
}

// MetadataFetcher retrieves package metadata from a remote registry.
type MetadataFetcher interface {
	// FetchMetadata fetches metadata by package name. It fails with a
	// PACKAGE_NOT_FOUND error if the registry has no such name.
	FetchMetadata(ctx context.Context, name string) (*PackageMetadata, error)
}

// ArtifactInstaller downloads and extracts a package artifact into the
// shared install target directory.
type ArtifactInstaller interface {
	Install(ctx context.Context, meta *PackageMetadata) error
}

// Resolver performs transitive dependency resolution: fetching metadata,
// installing artifacts, and inserting nodes into the graph.
//
// Resolution is depth-first in registry-declared order with no backtracking
// and no version-conflict detection: if two roots require different versions
// of a shared package, the first one resolved wins silently.
type Resolver struct {
	Registry MetadataFetcher
	Archive  ArtifactInstaller
	Logger   func(string, ...any) // Progress callback (optional)
}

// workItem is one pending resolution on the explicit worklist. Using a
// worklist instead of native recursion keeps resolution depth independent
// of the call stack and makes cycle detection a simple ancestor check.
type workItem struct {
	name   string
	group  string
	parent string   // canonical key of the requiring package, "" for roots
	path   []string // canonical keys from the root down to parent
}

// Resolve adds name and its transitive requirements to the graph and
// returns the root node.
//
// If the package is already tracked, the existing node is returned
// unchanged. Failures (package not found, malformed requirement, download
// or extraction errors) abort the whole call; mutations already performed
// by earlier sibling branches are kept, not rolled back. A subsequent
// apply reconciles any missing artifacts.
func (r *Resolver) Resolve(ctx context.Context, g *Graph, name, group string) (*Dependency, error) {
	var root *Dependency

	stack := []workItem{{name: name, group: group}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dep, err := r.resolveOne(ctx, g, it, &stack)
		if err != nil {
			return nil, err
		}
		if it.parent == "" && root == nil {
			root = dep
		}
	}
	return root, nil
}

func (r *Resolver) resolveOne(ctx context.Context, g *Graph, it workItem, stack *[]workItem) (*Dependency, error) {
	key := Canonical(it.name)

	// Termination: a tracked package is never fetched again. Shared
	// dependencies still accumulate every requirer on this path.
	if existing, ok := g.Get(key); ok {
		for _, ancestor := range it.path {
			if ancestor == key {
				return nil, errors.New(errors.ErrCodeCircularDependency,
					"circular dependency: %s requires itself via %s", it.name, it.parent)
			}
		}
		if it.parent != "" {
			existing.AddNeededBy(it.parent)
		}
		return existing, nil
	}

	meta, err := r.Registry.FetchMetadata(ctx, it.name)
	if err != nil {
		return nil, err
	}

	// The registry may report the package under a different display name
	// than the one requested. If its canonical form is already tracked,
	// take the accumulate path instead of inserting a second node.
	if existing, ok := g.Get(meta.Name); ok {
		if it.parent != "" {
			existing.AddNeededBy(it.parent)
		}
		return existing, nil
	}

	if err := r.Archive.Install(ctx, meta); err != nil {
		return nil, err
	}

	dep := New(meta.Name)
	dep.Version = meta.Version
	dep.Operator = OpEqual
	dep.Sha256 = meta.Sha256
	dep.DownloadURL = meta.DownloadURL
	dep.Filename = meta.Filename
	dep.RequiresDist = meta.RequiresDist
	if it.parent != "" {
		dep.AddNeededBy(it.parent)
	} else {
		dep.OptionalGroup = it.group
	}
	g.Insert(dep)

	r.logf("resolved %s==%s", dep.Name, dep.Version)

	children, err := r.requirements(dep, it)
	if err != nil {
		return nil, err
	}
	// Push in reverse so requirements resolve depth-first in declared order.
	for i := len(children) - 1; i >= 0; i-- {
		*stack = append(*stack, children[i])
	}
	return dep, nil
}

// requirements converts the node's raw requires_dist entries into work
// items. Entries with an environment marker are skipped; entries that do
// not match the grammar abort the enclosing resolve.
func (r *Resolver) requirements(dep *Dependency, it workItem) ([]workItem, error) {
	if len(dep.RequiresDist) == 0 {
		return nil, nil
	}

	path := make([]string, 0, len(it.path)+1)
	path = append(path, it.path...)
	path = append(path, dep.Key())

	var children []workItem
	for _, raw := range dep.RequiresDist {
		child, skip, err := ParseRequirement(raw)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		children = append(children, workItem{
			name:   child.Name,
			group:  it.group,
			parent: dep.Key(),
			path:   path,
		})
	}
	return children, nil
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger(format, args...)
	}
}
