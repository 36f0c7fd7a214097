package config

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/moppi-dev/moppi/pkg/deps"
	"github.com/moppi-dev/moppi/pkg/errors"
)

// TOMLStore persists the graph in pyproject.toml layout: direct
// dependencies under [project], optional groups under
// [project.optional-dependencies], and indirect plus lock entries under
// [tool.moppi].
type TOMLStore struct {
	path string
}

// NewTOMLStore creates a store backed by the TOML file at path.
func NewTOMLStore(path string) *TOMLStore {
	return &TOMLStore{path: path}
}

type tomlDocument struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies,omitempty"`
	} `toml:"project"`
	Tool struct {
		Moppi struct {
			IndirectDependencies []string `toml:"indirect-dependencies,omitempty"`
			DependencyLock       []string `toml:"dependency-lock,omitempty"`
		} `toml:"moppi"`
	} `toml:"tool"`
}

// Load reads and parses the lock file. A missing file yields an empty graph.
func (s *TOMLStore) Load() (*deps.Graph, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return deps.NewGraph(), nil
	}
	if err != nil {
		return nil, err
	}

	var file tomlDocument
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", s.path)
	}
	return decodeGraph(&document{
		Dependencies: file.Project.Dependencies,
		Optional:     file.Project.OptionalDependencies,
		Indirect:     file.Tool.Moppi.IndirectDependencies,
		Lock:         file.Tool.Moppi.DependencyLock,
	})
}

// Save serializes the graph to the lock file.
func (s *TOMLStore) Save(g *deps.Graph) error {
	doc := encodeGraph(g)

	var file tomlDocument
	file.Project.Dependencies = doc.Dependencies
	file.Project.OptionalDependencies = doc.Optional
	file.Tool.Moppi.IndirectDependencies = doc.Indirect
	file.Tool.Moppi.DependencyLock = doc.Lock

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(file); err != nil {
		return err
	}
	return os.WriteFile(s.path, buf.Bytes(), 0644)
}

var _ Store = (*TOMLStore)(nil)
