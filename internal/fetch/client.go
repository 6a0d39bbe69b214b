package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/ratelimit"
)

// HTTP status codes routed by the client.
const (
	statusOK          = 200
	statusTooManyReqs = 429
)

// maxResponseBodyBytes limits the size of a fetched response.
const maxResponseBodyBytes = 20 * 1024 * 1024 // 20 MB

// ErrRateLimited is returned after the remote answered 429 and the
// tracker's backoff pause has been taken.
var ErrRateLimited = errors.New("rate limited by remote")

// StatusError is an HTTP response with an unexpected status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// ClientParams configures a Client.
type ClientParams struct {
	Timeout   time.Duration
	UserAgent string
	RateLimit *config.RateLimitConfig
	Tracker   *ratelimit.Tracker
	Logger    logger.Interface
}

// Client is the HTTP client shared by one fetcher's requests. It
// enforces a hard client-side request ceiling beneath the adaptive
// tracker, so even a burst of retries cannot hammer the remote.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	tracker   *ratelimit.Tracker
	userAgent string
	log       logger.Interface
}

// NewClient creates a client with the given pacing configuration.
func NewClient(p ClientParams) *Client {
	return &Client{
		http:      &http.Client{Timeout: p.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(p.RateLimit.RequestsPerSecond), p.RateLimit.Burst),
		tracker:   p.Tracker,
		userAgent: p.UserAgent,
		log:       p.Logger,
	}
}

// Get performs a rate-limited GET and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, "")
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Post performs a rate-limited POST with a JSON payload and returns
// the raw response body.
func (c *Client) Post(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, bytes.NewReader(body), "application/json")
}

// PostJSON performs a POST with a JSON payload and decodes the JSON
// response into out.
func (c *Client) PostJSON(ctx context.Context, url string, payload, out any) error {
	data, err := c.Post(ctx, url, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == statusOK:
		return data, nil
	case resp.StatusCode == statusTooManyReqs:
		// Take the backoff pause here, in the worker that tripped the
		// limit, then surface the error for a staged retry.
		c.tracker.HandleSignal(ctx)
		return nil, ErrRateLimited
	default:
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
}
