package deps

import (
	"context"
	"testing"

	"github.com/moppi-dev/moppi/pkg/errors"
)

type mockRegistry struct {
	packages map[string]*PackageMetadata
	fetched  []string
}

func (m *mockRegistry) FetchMetadata(ctx context.Context, name string) (*PackageMetadata, error) {
	m.fetched = append(m.fetched, name)
	if meta, ok := m.packages[Canonical(name)]; ok {
		return meta, nil
	}
	return nil, errors.New(errors.ErrCodePackageNotFound, "package %s not found", name)
}

type mockArchive struct {
	installed []string
	fail      bool
}

func (m *mockArchive) Install(ctx context.Context, meta *PackageMetadata) error {
	if m.fail {
		return errors.New(errors.ErrCodeNetwork, "download failed")
	}
	m.installed = append(m.installed, meta.Name)
	return nil
}

func pkgMeta(name, version string, requires ...string) *PackageMetadata {
	return &PackageMetadata{
		Name:         name,
		Version:      version,
		DownloadURL:  "https://example.invalid/" + name,
		Filename:     name + "-" + version + ".whl",
		Sha256:       "deadbeef",
		RequiresDist: requires,
	}
}

func newResolver(reg *mockRegistry) (*Resolver, *mockArchive) {
	arch := &mockArchive{}
	return &Resolver{Registry: reg, Archive: arch}, arch
}

func TestResolveSinglePackage(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"werkzeug": pkgMeta("Werkzeug", "2.2.2"),
	}}
	r, arch := newResolver(reg)
	g := NewGraph()

	root, err := r.Resolve(context.Background(), g, "Werkzeug", "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if root.Name != "Werkzeug" || root.Version != "2.2.2" {
		t.Errorf("root = %s==%s, want Werkzeug==2.2.2", root.Name, root.Version)
	}
	if !root.Direct() {
		t.Error("root should be a direct dependency")
	}
	if g.Len() != 1 {
		t.Errorf("graph has %d nodes, want 1", g.Len())
	}
	if len(arch.installed) != 1 {
		t.Errorf("installed %d artifacts, want 1", len(arch.installed))
	}
}

func TestResolveTransitive(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"werkzeug":   pkgMeta("Werkzeug", "2.2.2", "MarkupSafe>=2.0"),
		"markupsafe": pkgMeta("MarkupSafe", "2.1.1"),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()

	if _, err := r.Resolve(context.Background(), g, "Werkzeug", ""); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if g.Len() != 2 {
		t.Fatalf("graph has %d nodes, want 2", g.Len())
	}
	ms, ok := g.Get("markupsafe")
	if !ok {
		t.Fatal("MarkupSafe not resolved")
	}
	if !ms.Indirect() {
		t.Error("MarkupSafe should be indirect")
	}
	if _, needed := ms.NeededBy["werkzeug"]; !needed {
		t.Errorf("MarkupSafe.NeededBy = %v, want to contain werkzeug", ms.Parents())
	}
	if ms.Version != "2.1.1" {
		t.Errorf("MarkupSafe resolved at %s, want fetched version 2.1.1", ms.Version)
	}
}

func TestResolveDiamondAccumulatesRequirers(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"a": pkgMeta("A", "1.0", "C>=1.0"),
		"b": pkgMeta("B", "1.0", "C>=1.0"),
		"c": pkgMeta("C", "1.0"),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()
	ctx := context.Background()

	if _, err := r.Resolve(ctx, g, "A", ""); err != nil {
		t.Fatalf("Resolve(A) error: %v", err)
	}
	if _, err := r.Resolve(ctx, g, "B", ""); err != nil {
		t.Fatalf("Resolve(B) error: %v", err)
	}

	if g.Len() != 3 {
		t.Fatalf("graph has %d nodes, want 3", g.Len())
	}
	c, _ := g.Get("c")
	parents := c.Parents()
	if len(parents) != 2 || parents[0] != "a" || parents[1] != "b" {
		t.Errorf("C.NeededBy = %v, want [a b]", parents)
	}

	// C's metadata must have been fetched exactly once.
	fetches := 0
	for _, name := range reg.fetched {
		if Canonical(name) == "c" {
			fetches++
		}
	}
	if fetches != 1 {
		t.Errorf("C fetched %d times, want 1", fetches)
	}
}

func TestResolveEquivalentSpellingsShareOneNode(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"a":                 pkgMeta("A", "1.0", "typing-extensions>=4.0"),
		"b":                 pkgMeta("B", "1.0", "typing_extensions>=4.0"),
		"typing-extensions": pkgMeta("typing_extensions", "4.4.0"),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()
	ctx := context.Background()

	if _, err := r.Resolve(ctx, g, "A", ""); err != nil {
		t.Fatalf("Resolve(A) error: %v", err)
	}
	if _, err := r.Resolve(ctx, g, "B", ""); err != nil {
		t.Fatalf("Resolve(B) error: %v", err)
	}

	// PEP 503 treats the hyphenated and underscored spellings as the same
	// registry package, so they must share one node with both requirers.
	if g.Len() != 3 {
		t.Fatalf("graph has %d nodes, want 3", g.Len())
	}
	te, ok := g.Get("typing_extensions")
	if !ok {
		t.Fatal("typing_extensions not resolved")
	}
	if parents := te.Parents(); len(parents) != 2 || parents[0] != "a" || parents[1] != "b" {
		t.Errorf("typing_extensions.NeededBy = %v, want [a b]", parents)
	}

	fetches := 0
	for _, name := range reg.fetched {
		if Canonical(name) == "typing-extensions" {
			fetches++
		}
	}
	if fetches != 1 {
		t.Errorf("typing_extensions fetched %d times, want 1", fetches)
	}

	// Removing one requirer must not cascade the shared package away.
	removed, err := PlanRemoval(g, "B")
	if err != nil {
		t.Fatalf("PlanRemoval(B) error: %v", err)
	}
	if len(removed) != 1 || removed[0] != "b" {
		t.Errorf("removed = %v, want [b]", removed)
	}
	if !g.Contains("typing-extensions") {
		t.Error("shared package removed while still required by A")
	}
}

func TestResolveExistingRootUnchanged(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{}}
	r, _ := newResolver(reg)
	g := NewGraph()

	existing := New("Werkzeug")
	existing.Version = "2.2.2"
	g.Insert(existing)

	root, err := r.Resolve(context.Background(), g, "werkzeug", "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if root != existing {
		t.Error("existing node should be returned unchanged")
	}
	if len(reg.fetched) != 0 {
		t.Errorf("registry fetched %v, want no fetches", reg.fetched)
	}
}

func TestResolveSkipsEnvironmentMarkers(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"werkzeug": pkgMeta("Werkzeug", "2.2.2", `colorama; platform_system == "Windows"`),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()

	if _, err := r.Resolve(context.Background(), g, "Werkzeug", ""); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if g.Contains("colorama") {
		t.Error("marker-gated requirement should never be resolved")
	}
}

func TestResolvePackageNotFound(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"werkzeug": pkgMeta("Werkzeug", "2.2.2", "NoSuchPackage>=1.0"),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()

	_, err := r.Resolve(context.Background(), g, "Werkzeug", "")
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Fatalf("error = %v, want PACKAGE_NOT_FOUND", err)
	}
	// Earlier branches are kept, not rolled back.
	if !g.Contains("werkzeug") {
		t.Error("root mutation from before the failure should remain")
	}
}

func TestResolveMalformedRequirementAborts(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"werkzeug": pkgMeta("Werkzeug", "2.2.2", "???"),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()

	_, err := r.Resolve(context.Background(), g, "Werkzeug", "")
	if !errors.Is(err, errors.ErrCodeMalformedRequirement) {
		t.Fatalf("error = %v, want MALFORMED_REQUIREMENT", err)
	}
}

func TestResolveCircularDependency(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"a": pkgMeta("A", "1.0", "B>=1.0"),
		"b": pkgMeta("B", "1.0", "A>=1.0"),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()

	_, err := r.Resolve(context.Background(), g, "A", "")
	if !errors.Is(err, errors.ErrCodeCircularDependency) {
		t.Fatalf("error = %v, want CIRCULAR_DEPENDENCY", err)
	}
}

func TestResolveArchiveFailureAborts(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"werkzeug": pkgMeta("Werkzeug", "2.2.2"),
	}}
	r, arch := newResolver(reg)
	arch.fail = true
	g := NewGraph()

	if _, err := r.Resolve(context.Background(), g, "Werkzeug", ""); err == nil {
		t.Fatal("Resolve() error = nil, want download failure")
	}
	if g.Len() != 0 {
		t.Error("failed download must not insert a node")
	}
}

func TestResolveOptionalGroupOnRootOnly(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"pytest": pkgMeta("pytest", "7.2.0", "pluggy>=1.0"),
		"pluggy": pkgMeta("pluggy", "1.0.0"),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()

	root, err := r.Resolve(context.Background(), g, "pytest", "dev")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if root.OptionalGroup != "dev" || !root.Optional() {
		t.Errorf("root group = %q, want dev", root.OptionalGroup)
	}
	pluggy, _ := g.Get("pluggy")
	if pluggy.OptionalGroup != "" {
		t.Errorf("indirect node carries group %q, want none", pluggy.OptionalGroup)
	}
}

func TestResolveDepthFirstDeclaredOrder(t *testing.T) {
	reg := &mockRegistry{packages: map[string]*PackageMetadata{
		"root":   pkgMeta("root", "1.0", "first>=1.0", "second>=1.0"),
		"first":  pkgMeta("first", "1.0", "nested>=1.0"),
		"nested": pkgMeta("nested", "1.0"),
		"second": pkgMeta("second", "1.0"),
	}}
	r, _ := newResolver(reg)
	g := NewGraph()

	if _, err := r.Resolve(context.Background(), g, "root", ""); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	want := []string{"root", "first", "nested", "second"}
	if len(reg.fetched) != len(want) {
		t.Fatalf("fetch order = %v, want %v", reg.fetched, want)
	}
	for i := range want {
		if Canonical(reg.fetched[i]) != want[i] {
			t.Errorf("fetch order = %v, want %v", reg.fetched, want)
			break
		}
	}
}
