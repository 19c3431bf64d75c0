// Package bundle resolves generator bundles to local files, downloading and
// caching them on first use.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Conceptual-Machines/melody-api/internal/config"
)

// ErrBundleNotFound is returned when no source has the requested bundle
var ErrBundleNotFound = errors.New("bundle not found")

// Fetcher resolves a bundle name to a readable local path
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// NewFetcher picks the bundle source from configuration: S3 when a bucket is
// set, HTTP when a base URL is set, local files otherwise.
func NewFetcher(cfg *config.Config) (Fetcher, error) {
	switch {
	case cfg.BundleS3Bucket != "":
		return NewS3Fetcher(cfg.AWSRegion, cfg.BundleS3Bucket, cfg.BundleDir)
	case cfg.BundleBaseURL != "":
		return NewHTTPFetcher(cfg.BundleBaseURL, cfg.BundleDir), nil
	default:
		return &NoopFetcher{Dir: cfg.BundleDir}, nil
	}
}

// NoopFetcher only resolves bundles already present in Dir
type NoopFetcher struct {
	Dir string
}

// Fetch returns the cached path for name or ErrBundleNotFound
func (f *NoopFetcher) Fetch(_ context.Context, name string) (string, error) {
	path, err := cachePath(f.Dir, name)
	if err != nil {
		return "", err
	}
	if cached(path) {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrBundleNotFound, name)
}

// cachePath maps a bundle name to its location under dir. Names are plain
// file names; anything that could escape dir is rejected.
func cachePath(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid bundle name %q", name)
	}
	return filepath.Join(dir, name), nil
}

func cached(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// writeAtomic creates path through a temp file in the same directory so a
// failed download never leaves a partial bundle behind.
func writeAtomic(path string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundle-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move bundle into place: %w", err)
	}
	return nil
}
