// Package config persists the dependency graph to a lock file and loads it
// back. Two backends are available: TOML (pyproject.toml layout) and YAML
// (moppi.yaml layout). Both serialize through the same document form, so a
// graph round-trips byte-identically regardless of backend.
package config

import (
	"path/filepath"
	"strings"

	"github.com/moppi-dev/moppi/pkg/deps"
	"github.com/moppi-dev/moppi/pkg/errors"
)

// Store loads the dependency graph from and saves it to the lock file.
type Store interface {
	// Load parses the persisted representation and rebuilds the graph.
	// A missing file yields an empty graph, not an error.
	Load() (*deps.Graph, error)

	// Save serializes the graph. Direct, optional (grouped) and indirect
	// dependencies are written separately; each indirect entry records its
	// full needed-by list inline so reloading reconstructs the graph
	// exactly.
	Save(g *deps.Graph) error
}

// ForPath selects a backend by file extension: .toml selects the
// pyproject-style TOML store, .yaml/.yml the moppi.yaml store.
func ForPath(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return NewTOMLStore(path), nil
	case ".yaml", ".yml":
		return NewYAMLStore(path), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported config file %q (want .toml or .yaml)", path)
	}
}
