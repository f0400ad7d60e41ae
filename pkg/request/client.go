package request

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"fernweh/pkg/tracker"
	"fernweh/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("Fernweh/%s (+https://fernweh.app)", version.Version)

// Config controls transport behavior. Zero values fall back to defaults,
// so New(tr, Config{}) is fully usable.
type Config struct {
	Timeout   time.Duration // per-attempt HTTP timeout (default 20s)
	Retries   int           // attempts per request (default 3)
	BaseDelay time.Duration // first backoff sleep (default 500ms)
	MaxDelay  time.Duration // backoff cap (default 10s)
	UserAgent string
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// Client handles HTTP requests with per-service queuing, retry and usage
// tracking. Response caching lives a layer up in the fetch gateway; this
// client only talks to the network.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *ServiceBackoff
	cfg        Config

	// Queues per service (domain)
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map
}

// job represents a queued request.
type job struct {
	req      *http.Request
	headers  map[string]string
	maxBytes int64 // 0 = read the whole body
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client.
func New(t *tracker.Tracker, cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracker:    t,
		backoff:    NewServiceBackoff(cfg.BaseDelay, cfg.MaxDelay),
		cfg:        cfg,
		queues:     make(map[string]chan job),
	}
}

// Get performs a GET request through the service queue.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	return c.get(ctx, u, nil, 0)
}

// GetWithHeaders performs a GET request with custom headers.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	return c.get(ctx, u, headers, 0)
}

// GetCapped performs a GET request but reads at most maxBytes of the
// response body. For fetching arbitrary pages of unknown size.
func (c *Client) GetCapped(ctx context.Context, u string, maxBytes int64) ([]byte, error) {
	return c.get(ctx, u, nil, maxBytes)
}

func (c *Client) get(ctx context.Context, u string, headers map[string]string, maxBytes int64) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	service := normalizeService(parsedURL.Host)

	req, err := http.NewRequestWithContext(ctx, "GET", u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	j := job{req: req, headers: headers, maxBytes: maxBytes, respChan: respChan}

	c.dispatch(service, j)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	}
}

// normalizeService groups API hosts into the service names used by the
// rate limiter and the usage tracker.
func normalizeService(host string) string {
	switch {
	case strings.HasSuffix(host, ".brave.com"):
		return "brave"
	case strings.HasSuffix(host, ".flickr.com"), host == "flickr.com":
		return "flickr"
	case strings.HasSuffix(host, ".wikimedia.org"), host == "wikimedia.org":
		return "wikimedia"
	case strings.HasSuffix(host, ".wikipedia.org"), host == "wikipedia.org":
		return "wikimedia"
	case strings.HasSuffix(host, "googleapis.com"):
		return "gemini"
	case strings.HasSuffix(host, ".geonames.org"), host == "geonames.org":
		return "geonames"
	case host == "nominatim.openstreetmap.org":
		return "nominatim"
	default:
		return host
	}
}

// dispatch sends the job to the service's queue, creating the queue/worker if needed.
func (c *Client) dispatch(service string, j job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queues[service]
	if !ok {
		// Create new queue and start worker
		q = make(chan job, 100)
		c.queues[service] = q
		go c.worker(service, q)
	}

	// We block here if the queue is full, effectively throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		// Caller gave up before we could even enqueue
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
}

// worker processes requests for a specific service sequentially.
func (c *Client) worker(service string, q <-chan job) {
	for j := range q {
		// Check context before processing
		if j.req.Context().Err() != nil {
			slog.Warn("Request: job dropped from queue (context expired)", "service", service, "error", j.req.Context().Err())
			j.respChan <- jobResult{err: j.req.Context().Err()}
			continue
		}

		// Apply User-Agent (default if not provided)
		uaMatch := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaMatch = true
			}
		}
		if !uaMatch {
			j.req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		// Honor the adaptive per-service gate before dialing
		c.backoff.Wait(service)

		body, err := c.executeWithBackoff(j.req, j.maxBytes)

		if err == nil {
			c.tracker.TrackAPISuccess(service)
			c.backoff.RecordSuccess(service)
		} else {
			c.tracker.TrackAPIFailure(service)
			c.backoff.RecordFailure(service)
		}

		j.respChan <- jobResult{body: body, err: err}

		// Safety gap between consecutive calls to one service
		time.Sleep(100 * time.Millisecond)
	}
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
func (c *Client) executeWithBackoff(req *http.Request, maxBytes int64) ([]byte, error) {
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		// Verify context is still alive before dialing
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}

		slog.Debug("Request: network call", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)

		if err != nil {
			// Check if the error is a context cancellation from OUR side
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}

			// Otherwise, it's a network error or server timeout
			slog.Warn("Request: attempt failed, retrying", "url", req.URL, "attempt", attempt+1, "error", err)
			if err := c.sleepBackoff(req, attempt); err != nil {
				return nil, err
			}
			continue
		}

		// Handle Status Codes
		if resp.StatusCode == 429 || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			slog.Warn("Request: server backoff", "status", resp.StatusCode, "url", req.URL, "attempt", attempt+1)
			if err := c.sleepBackoff(req, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("api error: status %d", resp.StatusCode)
		}

		// Success
		var r io.Reader = resp.Body
		if maxBytes > 0 {
			r = io.LimitReader(r, maxBytes)
		}
		body, err := io.ReadAll(r)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded")
}

// sleepBackoff sleeps the capped exponential delay for the attempt, or
// returns early when the request context ends.
func (c *Client) sleepBackoff(req *http.Request, attempt int) error {
	delay := time.Duration(math.Pow(2, float64(attempt))) * c.cfg.BaseDelay
	if delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}
	select {
	case <-time.After(delay):
		return nil
	case <-req.Context().Done():
		return req.Context().Err()
	}
}
