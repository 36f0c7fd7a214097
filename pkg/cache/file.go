package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileCache keeps registry responses on disk across installer runs, so
// repeated add/update invocations against the same packages skip the
// network entirely until the entry goes stale.
//
// Each entry lives in its own file under a two-character shard directory
// derived from the hashed key, which keeps directory listings small even
// for projects with hundreds of dependencies.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-backed cache rooted at dir, creating the
// directory if needed.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// record is the on-disk form of one cached registry response.
type record struct {
	Payload    []byte    `json:"payload"`
	StaleAfter time.Time `json:"stale_after"`
}

func (r *record) stale() bool {
	return !r.StaleAfter.IsZero() && time.Now().After(r.StaleAfter)
}

// Get retrieves a value. Corrupt or stale records are evicted and reported
// as a miss, so a bad entry never poisons an installer run.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.stale() {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return rec.Payload, true, nil
}

// Set stores a value. A ttl of 0 keeps the entry until explicitly deleted.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	rec := record{Payload: data}
	if ttl > 0 {
		rec.StaleAfter = time.Now().Add(ttl)
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0644)
}

// Delete removes a value. Deleting a missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; every operation opens and closes its own file.
func (c *FileCache) Close() error { return nil }

// path maps a key (e.g. "pypi:werkzeug") to its shard file. Keys are
// hashed so they never need escaping as filenames.
func (c *FileCache) path(key string) string {
	sum := Hash([]byte(key))
	return filepath.Join(c.dir, sum[:2], sum+".json")
}

var _ Cache = (*FileCache)(nil)
