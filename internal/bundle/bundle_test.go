package bundle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"                  //nolint:staticcheck
	"github.com/aws/aws-sdk-go/aws/awserr"           //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/s3"           //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/s3/s3manager" //nolint:staticcheck
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/melody-api/internal/config"
)

func TestNoopFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "markov.json"), []byte(`{}`), 0o644))

	f := &NoopFetcher{Dir: dir}

	path, err := f.Fetch(context.Background(), "markov.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "markov.json"), path)

	_, err = f.Fetch(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrBundleNotFound)
}

func TestFetchRejectsUnsafeNames(t *testing.T) {
	f := &NoopFetcher{Dir: t.TempDir()}
	for _, name := range []string{"", "../etc/passwd", "a/b.json", ".hidden"} {
		_, err := f.Fetch(context.Background(), name)
		assert.Error(t, err, name)
		assert.NotErrorIs(t, err, ErrBundleNotFound, name)
	}
}

func TestHTTPFetcherDownloadsAndCaches(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/markov.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"transitions":{}}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := NewHTTPFetcher(server.URL, dir)

	path, err := f.Fetch(context.Background(), "markov.json")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"transitions":{}}`, string(data))

	// second fetch is served from the cache
	_, err = f.Fetch(context.Background(), "markov.json")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	_, err = f.Fetch(context.Background(), "other.json")
	assert.ErrorIs(t, err, ErrBundleNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "failed download must not leave files behind")
}

func TestHTTPFetcherServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(server.URL, t.TempDir()).Fetch(context.Background(), "markov.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBundleNotFound)
}

type fakeDownloader struct {
	objects map[string][]byte
	calls   int
}

func (d *fakeDownloader) DownloadWithContext(
	_ aws.Context, w io.WriterAt, input *s3.GetObjectInput, _ ...func(*s3manager.Downloader),
) (int64, error) {
	d.calls++
	data, ok := d.objects[aws.StringValue(input.Key)]
	if !ok {
		return 0, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

func TestS3FetcherDownloadsAndCaches(t *testing.T) {
	fake := &fakeDownloader{objects: map[string][]byte{"markov.json": []byte(`{"transitions":{}}`)}}
	f := &S3Fetcher{bucket: "bundles", dir: t.TempDir(), downloader: fake}

	path, err := f.Fetch(context.Background(), "markov.json")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"transitions":{}}`, string(data))

	_, err = f.Fetch(context.Background(), "markov.json")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)

	_, err = f.Fetch(context.Background(), "missing.json")
	assert.True(t, errors.Is(err, ErrBundleNotFound))
}

func TestNewFetcherSelectsSource(t *testing.T) {
	f, err := NewFetcher(&config.Config{BundleDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &NoopFetcher{}, f)

	f, err = NewFetcher(&config.Config{BundleDir: t.TempDir(), BundleBaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = NewFetcher(&config.Config{BundleDir: t.TempDir(), BundleS3Bucket: "b", AWSRegion: "us-east-1"})
	require.NoError(t, err)
	assert.IsType(t, &S3Fetcher{}, f)
}
