package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/moppi-dev/moppi/pkg/deps"
	"github.com/moppi-dev/moppi/pkg/errors"
)

// YAMLStore persists the graph in moppi.yaml layout with the four sections
// as top-level keys.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a store backed by the YAML file at path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

type yamlDocument struct {
	Dependencies         []string            `yaml:"dependencies"`
	OptionalDependencies map[string][]string `yaml:"optional-dependencies,omitempty"`
	IndirectDependencies []string            `yaml:"indirect-dependencies,omitempty"`
	DependencyLock       []string            `yaml:"dependency-lock,omitempty"`
}

// Load reads and parses the lock file. A missing file yields an empty graph.
func (s *YAMLStore) Load() (*deps.Graph, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return deps.NewGraph(), nil
	}
	if err != nil {
		return nil, err
	}

	var file yamlDocument
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", s.path)
	}
	return decodeGraph(&document{
		Dependencies: file.Dependencies,
		Optional:     file.OptionalDependencies,
		Indirect:     file.IndirectDependencies,
		Lock:         file.DependencyLock,
	})
}

// Save serializes the graph to the lock file.
func (s *YAMLStore) Save(g *deps.Graph) error {
	doc := encodeGraph(g)

	data, err := yaml.Marshal(yamlDocument{
		Dependencies:         doc.Dependencies,
		OptionalDependencies: doc.Optional,
		IndirectDependencies: doc.Indirect,
		DependencyLock:       doc.Lock,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

var _ Store = (*YAMLStore)(nil)
