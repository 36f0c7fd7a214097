// Package pypi implements the PyPI JSON API client.
package pypi

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/moppi-dev/moppi/pkg/cache"
	"github.com/moppi-dev/moppi/pkg/deps"
	"github.com/moppi-dev/moppi/pkg/errors"
	"github.com/moppi-dev/moppi/pkg/registry"
)

// DefaultCacheTTL is how long metadata responses are cached.
const DefaultCacheTTL = 24 * time.Hour

// Client provides access to the PyPI package registry API.
// It handles HTTP requests with caching and automatic retries.
type Client struct {
	*registry.Client
	baseURL string
	refresh bool
}

// NewClient creates a PyPI client with the given cache backend.
// If refresh is true, cached metadata is bypassed for the whole run.
func NewClient(backend cache.Cache, ttl time.Duration, refresh bool) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "pypi:", ttl),
		baseURL: "https://pypi.org/pypi",
		refresh: refresh,
	}
}

var separatorRE = regexp.MustCompile(`[-_.]+`)

// NormalizeName converts a package name to its canonical registry form:
// lowercase, with runs of hyphens, underscores and dots collapsed to a
// single hyphen, following the PEP 503 rules used by PyPI.
func NormalizeName(name string) string {
	return separatorRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// FetchMetadata retrieves metadata for a package from PyPI.
//
// The name is normalized automatically (case-insensitive, underscores to
// hyphens). Returns a PACKAGE_NOT_FOUND error if the registry has no such
// name, and an INVALID_METADATA error if the response lacks required fields.
func (c *Client) FetchMetadata(ctx context.Context, name string) (*deps.PackageMetadata, error) {
	normalized := NormalizeName(name)

	var meta deps.PackageMetadata
	err := c.Cached(ctx, normalized, c.refresh, &meta, func() error {
		return c.fetch(ctx, normalized, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *Client) fetch(ctx context.Context, name string, meta *deps.PackageMetadata) error {
	var data apiResponse
	if err := c.GetJSON(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, name), &data); err != nil {
		if stderrors.Is(err, registry.ErrNotFound) {
			return errors.Wrap(errors.ErrCodePackageNotFound, err, "package %s not found", name)
		}
		return err
	}
	return data.validate(name, meta)
}

type apiResponse struct {
	Info apiInfo  `json:"info"`
	URLs []apiURL `json:"urls"`
}

type apiInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	RequiresDist []string `json:"requires_dist"`
}

type apiURL struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Digests  struct {
		Sha256 string `json:"sha256"`
	} `json:"digests"`
}

// validate checks required fields at the client boundary so the resolver
// never handles partially-shaped data.
func (r *apiResponse) validate(name string, meta *deps.PackageMetadata) error {
	if r.Info.Name == "" || r.Info.Version == "" {
		return errors.New(errors.ErrCodeInvalidMetadata, "registry metadata for %s lacks name or version", name)
	}
	if len(r.URLs) == 0 {
		return errors.New(errors.ErrCodeInvalidMetadata, "registry metadata for %s lists no distributions", name)
	}
	first := r.URLs[0]
	if first.URL == "" || first.Filename == "" {
		return errors.New(errors.ErrCodeInvalidMetadata, "registry metadata for %s lacks a download URL", name)
	}

	*meta = deps.PackageMetadata{
		Name:         r.Info.Name,
		Version:      r.Info.Version,
		DownloadURL:  first.URL,
		Filename:     first.Filename,
		Sha256:       first.Digests.Sha256,
		RequiresDist: r.Info.RequiresDist,
	}
	return nil
}
