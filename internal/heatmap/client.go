// Package heatmap is the HTTP client for the heatmap backend. It wraps
// the two read-only endpoints the dashboard consumes — the index
// catalog and per-index heatmap matrices — and normalizes every
// failure (transport, timeout, non-2xx status, malformed body) into a
// single human-readable error message suitable for direct display.
package heatmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds every request; the backend computes heatmaps
// synchronously, so anything slower is treated as a failure.
const DefaultTimeout = 10 * time.Second

// fetchConcurrency caps the fan-out of FetchHeatmaps.
const fetchConcurrency = 5

const indicesFallback = "failed to fetch indices; ensure backend is reachable"

func heatmapFallback(index string) string {
	return fmt.Sprintf("failed to fetch heatmap for %s; ensure backend is reachable", index)
}

// Client talks to the heatmap backend. Each call is a single attempt:
// no retries, no backoff, no caching — re-issuing is the caller's
// decision.
type Client struct {
	http *resty.Client
}

// NewClient creates a client against the given base URL. A
// non-positive timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := resty.New()
	rc.SetBaseURL(strings.TrimRight(baseURL, "/"))
	rc.SetTimeout(timeout)
	rc.SetHeader("Content-Type", "application/json")
	rc.SetHeader("Accept", "application/json")

	return &Client{http: rc}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.http.BaseURL }

// Ping checks backend reachability via its root info endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return fmt.Errorf("backend unreachable at %s: %w", c.BaseURL(), err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("backend at %s returned status %d", c.BaseURL(), resp.StatusCode())
	}
	return nil
}

// FetchIndices returns the ordered index catalog from GET /indices.
func (c *Client) FetchIndices(ctx context.Context) ([]string, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/indices")
	if err != nil {
		return nil, errors.New(indicesFallback)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.New(detailOr(resp.Body(), indicesFallback))
	}

	var body indicesResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, errors.New(indicesFallback)
	}
	return body.Indices, nil
}

// FetchHeatmap returns the heatmap payload for one index from
// GET /heatmap/{index}. The forward_period query parameter is attached
// only for non-current periods; the backend treats its absence as the
// month-over-month view.
func (c *Client) FetchHeatmap(ctx context.Context, index string, period Period) (*Payload, error) {
	fallback := heatmapFallback(index)

	req := c.http.R().SetContext(ctx)
	if !period.IsCurrent() {
		req.SetQueryParam("forward_period", string(period))
	}

	resp, err := req.Get("/heatmap/" + url.PathEscape(index))
	if err != nil {
		return nil, errors.New(fallback)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.New(detailOr(resp.Body(), fallback))
	}

	var payload Payload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, errors.New(fallback)
	}
	return &payload, nil
}

// FetchHeatmaps fetches heatmaps for several indices concurrently,
// keyed by index name. The first failure cancels the remaining
// fetches and is returned as-is.
func (c *Client) FetchHeatmaps(ctx context.Context, indices []string, period Period) (map[string]*Payload, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	var mu sync.Mutex
	out := make(map[string]*Payload, len(indices))

	for _, index := range indices {
		index := index
		g.Go(func() error {
			p, err := c.FetchHeatmap(ctx, index, period)
			if err != nil {
				return err
			}
			mu.Lock()
			out[index] = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// detailOr extracts the backend's optional {"detail": "..."} error
// field, falling back to the given message when the body carries none.
func detailOr(body []byte, fallback string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Detail != "" {
		return eb.Detail
	}
	return fallback
}
