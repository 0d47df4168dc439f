// Package fetcher downloads municipal dataset exports over HTTP. Open data
// portals rate limit aggressively and drop long transfers, so every download
// is rate limited and retried.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/opencurb/curb-cli/internal/resilience"
)

// Options configures the dataset fetcher.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig

	// RequestsPerSecond throttles requests to the portal.
	RequestsPerSecond float64
}

// Fetcher downloads dataset files.
type Fetcher struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "curb-cli/1.0"
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

// Download fetches url into destPath, creating parent directories as needed.
// The file is written through a temp name and renamed only on success.
func (f *Fetcher) Download(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return eris.Wrap(err, "fetcher: create dest dir")
	}

	err := resilience.Do(ctx, f.opts.Retry, func(ctx context.Context) error {
		return f.downloadOnce(ctx, url, destPath)
	})
	if err != nil {
		return err
	}

	zap.L().Info("fetcher: downloaded", zap.String("url", url), zap.String("dest", destPath))
	return nil
}

func (f *Fetcher) downloadOnce(ctx context.Context, url, destPath string) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "fetcher: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "fetcher: build request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "fetcher: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("fetcher: %s returned status %d", url, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return eris.Wrap(err, "fetcher: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close() //nolint:errcheck
		return resilience.NewTransientError(eris.Wrap(err, "fetcher: copy body"), 0)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "fetcher: close temp file")
	}
	return eris.Wrap(os.Rename(tmp.Name(), destPath), "fetcher: rename")
}
