package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinworks/greenampt-cli/internal/resilience"
)

// testFetcher builds a fetcher whose limiter map covers the test
// server's host, with fast retry backoff.
func testFetcher(t *testing.T, srv *httptest.Server) *HTTPFetcher {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	return NewHTTPFetcher(HTTPOptions{
		Timeout: 5 * time.Second,
		Retry: resilience.Policy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			JitterFraction: 0,
		},
		RateLimiters: map[string]*AdaptiveLimiter{
			u.Host: NewAdaptiveLimiter(1000, 1000),
		},
	})
}

func TestDownload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "greenampt-cli/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("archive bytes"))
	}))
	defer srv.Close()

	body, err := testFetcher(t, srv).Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testFetcher(t, srv).Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()
	assert.EqualValues(t, 3, calls.Load())
}

func TestDownloadFailsFastOnNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(t, srv).Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDownloadToFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("zip content"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "survey.zip")
	n, err := testFetcher(t, srv).DownloadToFile(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.EqualValues(t, len("zip content"), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zip content", string(data))
}

func TestDownloadIfChanged(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v2"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v2"`)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	f := testFetcher(t, srv)

	body, etag, changed, err := f.DownloadIfChanged(context.Background(), srv.URL, "")
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, `"v2"`, etag)
	_ = body.Close()

	body, etag, changed, err = f.DownloadIfChanged(context.Background(), srv.URL, `"v2"`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, `"v2"`, etag)
	assert.Nil(t, body)
}

func TestAdaptiveLimiterAdjusts(t *testing.T) {
	t.Parallel()

	lim := NewAdaptiveLimiter(10, 10)

	lim.OnSuccess()
	assert.InDelta(t, 12.0, float64(lim.Limit()), 1e-9)

	lim.OnRateLimit()
	assert.InDelta(t, 6.0, float64(lim.Limit()), 1e-9)

	// Floor at a quarter of the initial rate.
	for range 10 {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 1e-9)

	// Ceiling at twice the initial rate.
	for range 20 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 1e-9)
}
