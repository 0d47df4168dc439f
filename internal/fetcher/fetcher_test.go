package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/resilience"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testFetcher() *Fetcher {
	return New(Options{
		RequestsPerSecond: 1000,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			Multiplier:     2.0,
		},
	})
}

func TestDownload(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		_, _ = w.Write([]byte("shapefile bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data", "centerlines.zip")
	require.NoError(t, testFetcher().Download(context.Background(), srv.URL, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "shapefile bytes", string(data))
	assert.Equal(t, "curb-cli/1.0", gotUA)
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, testFetcher().Download(context.Background(), srv.URL, dest))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownloadDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	err := testFetcher().Download(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), calls.Load())

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}
