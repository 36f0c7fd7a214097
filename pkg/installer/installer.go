// Package installer orchestrates the user-facing operations: add, update,
// remove and apply. It composes the config store, the registry client, the
// archive manager and the dependency graph engine; the lock file is loaded
// at the start and saved at the end of every mutating operation.
package installer

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/moppi-dev/moppi/pkg/archive"
	"github.com/moppi-dev/moppi/pkg/config"
	"github.com/moppi-dev/moppi/pkg/deps"
	"github.com/moppi-dev/moppi/pkg/errors"
)

// Installer wires the collaborators behind the four commands.
type Installer struct {
	store    config.Store
	registry deps.MetadataFetcher
	archive  *archive.Manager
	logger   *log.Logger
}

// New creates an Installer. A nil logger falls back to the default logger.
func New(store config.Store, registry deps.MetadataFetcher, mgr *archive.Manager, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{store: store, registry: registry, archive: mgr, logger: logger}
}

func (i *Installer) resolver() *deps.Resolver {
	return &deps.Resolver{
		Registry: i.registry,
		Archive:  i.archive,
		Logger:   func(msg string, args ...any) { i.logger.Debugf(msg, args...) },
	}
}

// Add installs a package and its transitive requirements, optionally into a
// named optional group. Adding an already-installed package is a no-op
// reported as success.
func (i *Installer) Add(ctx context.Context, name, group string) error {
	g, err := i.store.Load()
	if err != nil {
		return err
	}
	if g.Contains(name) {
		i.logger.Infof("Package %s is already installed", name)
		return nil
	}

	root, err := i.resolver().Resolve(ctx, g, name, group)
	if err != nil {
		return err
	}
	if err := i.store.Save(g); err != nil {
		return err
	}
	i.logger.Infof("Added %s==%s (%d packages tracked)", root.Name, root.Version, g.Len())
	return nil
}

// Update refetches a root package at the latest version. There is no
// in-place version bump: the whole subtree is removed and resolved again.
func (i *Installer) Update(ctx context.Context, name string) error {
	g, err := i.store.Load()
	if err != nil {
		return err
	}

	removed, err := deps.PlanRemoval(g, name)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotInstalled) {
			i.logger.Infof("Package %s is not installed", name)
			return nil
		}
		return err
	}
	if _, err := i.archive.RemoveArtifacts(removed); err != nil {
		return err
	}

	if _, err := i.resolver().Resolve(ctx, g, name, ""); err != nil {
		return err
	}
	if err := i.store.Save(g); err != nil {
		return err
	}
	i.logger.Infof("Updated %s", name)
	return nil
}

// Remove uninstalls a root package, cascades through indirect dependencies
// that become unreferenced, and deletes their on-disk artifacts. Removing a
// package that is not installed is reported as a message, not an error.
func (i *Installer) Remove(ctx context.Context, name string) error {
	g, err := i.store.Load()
	if err != nil {
		return err
	}

	removed, err := deps.PlanRemoval(g, name)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotInstalled) {
			i.logger.Infof("Package %s is not installed", name)
			return nil
		}
		return err
	}
	i.logger.Infof("Removing %v", removed)

	paths, err := i.archive.RemoveArtifacts(removed)
	if err != nil {
		return err
	}
	for _, path := range paths {
		i.logger.Debugf("deleted %s", path)
	}
	return i.store.Save(g)
}

// Apply downloads artifacts for every recorded root dependency that is
// missing on disk, optionally filtered to one optional group. It assumes
// the lock file already encodes the full transitive closure: no graph
// mutation and no recursive resolution happen here.
func (i *Installer) Apply(ctx context.Context, group string) error {
	g, err := i.store.Load()
	if err != nil {
		return err
	}

	for _, dep := range g.All() {
		if dep.Indirect() {
			continue
		}
		if group != "" && dep.OptionalGroup != group {
			continue
		}

		installed, err := i.archive.Installed(dep.Name)
		if err != nil {
			return err
		}
		if installed {
			i.logger.Infof("Package %s is already installed", dep.Name)
			continue
		}

		meta, err := i.registry.FetchMetadata(ctx, dep.Name)
		if err != nil {
			return err
		}
		if err := i.archive.Install(ctx, meta); err != nil {
			return err
		}
		i.logger.Infof("Installed %s==%s", meta.Name, meta.Version)
	}
	return nil
}
