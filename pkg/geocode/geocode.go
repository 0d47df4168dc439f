// Package geocode resolves street addresses to coordinates using the Census
// Bureau geocoder. The Census endpoint is free and keyless, which makes it
// the right default for a CLI.
package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/opencurb/curb-cli/internal/resilience"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

// Result is a geocoded address.
type Result struct {
	Longitude      float64
	Latitude       float64
	MatchedAddress string
}

// Client geocodes one-line addresses with an in-memory cache.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	baseURL    string

	mu    sync.RWMutex
	cache map[string]*Result
}

// NewClient creates a geocoding client throttled to rps requests per second.
func NewClient(rps float64) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		retry:      resilience.DefaultRetryConfig(),
		baseURL:    censusOneLineURL,
		cache:      make(map[string]*Result),
	}
}

// Geocode resolves a one-line address. A nil result with nil error means the
// geocoder found no match.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, eris.New("geocode: empty address")
	}

	key := cacheKey(address)
	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var result *Result
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		result, err = c.lookup(ctx, address)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = result
	c.mu.Unlock()
	return result, nil
}

func (c *Client) lookup(ctx context.Context, address string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: census returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var parsed struct {
		Result struct {
			AddressMatches []struct {
				Coordinates struct {
					X float64 `json:"x"`
					Y float64 `json:"y"`
				} `json:"coordinates"`
				MatchedAddress string `json:"matchedAddress"`
			} `json:"addressMatches"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	if len(parsed.Result.AddressMatches) == 0 {
		return nil, nil
	}
	m := parsed.Result.AddressMatches[0]
	return &Result{
		Longitude:      m.Coordinates.X,
		Latitude:       m.Coordinates.Y,
		MatchedAddress: m.MatchedAddress,
	}, nil
}

func cacheKey(address string) string {
	h := sha256.Sum256([]byte(strings.ToLower(address)))
	return fmt.Sprintf("%x", h)
}
