package bundle

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// HTTPFetcher downloads bundles from BaseURL/<name> into Dir
type HTTPFetcher struct {
	baseURL string
	dir     string
	http    *http.Client
}

// NewHTTPFetcher creates an HTTP bundle fetcher
func NewHTTPFetcher(baseURL, dir string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		dir:     dir,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// Fetch returns the cached bundle or downloads it
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (string, error) {
	path, err := cachePath(f.dir, name)
	if err != nil {
		return "", err
	}
	if cached(path) {
		return path, nil
	}

	url := f.baseURL + "/" + name
	log.Printf("📦 Downloading bundle %s from %s", name, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download bundle %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrBundleNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("download bundle %s: unexpected status %d", name, resp.StatusCode)
	}

	err = writeAtomic(path, func(out *os.File) error {
		if _, err := io.Copy(out, resp.Body); err != nil {
			return fmt.Errorf("write bundle: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("✅ Bundle %s cached at %s", name, path)
	return path, nil
}
