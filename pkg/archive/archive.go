// Package archive handles package artifacts on disk: downloading and
// extracting wheel archives into the install target directory, checking
// whether a package is already present, and deleting artifacts on removal.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/moppi-dev/moppi/pkg/deps"
)

// Fetcher downloads a package artifact as raw bytes.
type Fetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Manager downloads, extracts and deletes package artifacts in a single
// shared install target directory.
type Manager struct {
	fetcher Fetcher
	dir     string
}

// NewManager creates a Manager extracting into dir.
func NewManager(fetcher Fetcher, dir string) *Manager {
	return &Manager{fetcher: fetcher, dir: dir}
}

// Dir returns the install target directory.
func (m *Manager) Dir() string { return m.dir }

// Install downloads the artifact described by meta and extracts it into the
// install target directory. There is no retry beyond the fetcher's own;
// a failure here fails the whole operation.
func (m *Manager) Install(ctx context.Context, meta *deps.PackageMetadata) error {
	data, err := m.fetcher.Download(ctx, meta.DownloadURL)
	if err != nil {
		return fmt.Errorf("download %s: %w", meta.Filename, err)
	}
	if err := Extract(data, m.dir); err != nil {
		return fmt.Errorf("extract %s: %w", meta.Filename, err)
	}
	return nil
}

// Extract unpacks a zip archive (wheels are zip files) into dir.
// Entries that would escape dir are rejected.
func Extract(data []byte, dir string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, file := range reader.File {
		if err := extractFile(file, dir); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, dir string) error {
	path := filepath.Join(dir, file.Name)
	if !strings.HasPrefix(path, filepath.Clean(dir)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes target directory", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(path, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Installed reports whether an artifact for the named package already
// exists in the install directory. The check is a name-based heuristic:
// directory entries are matched by their name prefix up to the first
// hyphen, with underscores and hyphens treated as equivalent.
func (m *Manager) Installed(name string) (bool, error) {
	target := underscored(name)

	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entryPrefix(entry.Name()) == target {
			return true, nil
		}
	}
	return false, nil
}

// RemoveArtifacts deletes every directory entry whose name prefix matches
// one of the given canonical package names. It returns the paths removed.
func (m *Manager) RemoveArtifacts(names []string) ([]string, error) {
	targets := make(map[string]bool, len(names))
	for _, name := range names {
		targets[underscored(name)] = true
	}

	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, entry := range entries {
		if !targets[entryPrefix(entry.Name())] {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// entryPrefix reduces a directory entry name to the package name it was
// extracted from: "markupsafe-2.1.1.dist-info" -> "markupsafe".
func entryPrefix(entry string) string {
	prefix, _, _ := strings.Cut(entry, "-")
	prefix, _, _ = strings.Cut(prefix, ".")
	return strings.ToLower(prefix)
}

// underscored maps a package name to the form used in extracted wheel
// directory names.
func underscored(name string) string {
	return strings.ReplaceAll(deps.Canonical(name), "-", "_")
}
