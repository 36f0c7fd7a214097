package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/moppi-dev/moppi/pkg/archive"
	"github.com/moppi-dev/moppi/pkg/cache"
	"github.com/moppi-dev/moppi/pkg/config"
	"github.com/moppi-dev/moppi/pkg/installer"
	"github.com/moppi-dev/moppi/pkg/registry/pypi"
)

// appName is the application name used for cache directories.
const appName = "moppi"

// newInstaller wires the config store, cache backend, PyPI client and
// archive manager for one command invocation. The returned cleanup closes
// the cache backend.
func newInstaller(ctx context.Context, s *settings, refresh bool) (*installer.Installer, func(), error) {
	store, err := config.ForPath(s.configPath)
	if err != nil {
		return nil, nil, err
	}

	backend, err := newCacheBackend(ctx, s.noCache)
	if err != nil {
		printWarning("Registry cache disabled: %v", err)
		backend = cache.NewNullCache()
	}

	client := pypi.NewClient(backend, pypi.DefaultCacheTTL, refresh)
	mgr := archive.NewManager(client, s.target)
	inst := installer.New(store, client, mgr, loggerFromContext(ctx))

	return inst, func() { _ = backend.Close() }, nil
}

// newCacheBackend picks the cache backend: null when disabled, Redis when
// MOPPI_REDIS_ADDR is set, file-based otherwise.
func newCacheBackend(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if addr := os.Getenv("MOPPI_REDIS_ADDR"); addr != "" {
		return cache.NewRedisCache(ctx, addr)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/moppi/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
