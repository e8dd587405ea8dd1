package figma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Figma REST API root.
	DefaultBaseURL = "https://api.figma.com/v1"

	// DefaultRateLimit is the default number of API requests per second the client issues.
	DefaultRateLimit = 5

	maxRetries        = 3
	defaultRetryDelay = 2 * time.Second
)

// Client represents a Figma API client with configured HTTP settings for reliable communication
// with the Figma API. It includes retry logic, a client-side rate limiter and optimized transport
// settings.
type Client struct {
	accessToken string
	oauth       bool
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	retryDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mostly useful for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithOAuth sends the token as an OAuth bearer token instead of a personal access token.
func WithOAuth(enabled bool) Option {
	return func(c *Client) {
		c.oauth = enabled
	}
}

// WithRateLimit limits the client to rps requests per second. A non-positive value disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryDelay sets the base delay between retries. Attempt n waits n*delay.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// NewClient creates a new Figma API client with the provided access token.
// The client is configured with connection pooling, disabled HTTP/2 (for large response stability)
// and a 60 second timeout, matching the time Figma needs to render large batches.
func NewClient(accessToken string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
		// Disable HTTP/2 to avoid stream errors with large responses
		ForceAttemptHTTP2: false,
	}

	c := &Client{
		accessToken: accessToken,
		baseURL:     DefaultBaseURL,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retryDelay: defaultRetryDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetFileNodes retrieves the requested nodes of a file. depth limits how deep the returned
// subtrees go; depth=1 returns each node with its direct children only. A depth <= 0 returns
// the full subtrees.
func (c *Client) GetFileNodes(ctx context.Context, fileKey string, nodeIDs []string, depth int) (*NodesResponse, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(nodeIDs, ","))
	if depth > 0 {
		query.Set("depth", strconv.Itoa(depth))
	}

	var nodesResp NodesResponse
	if err := c.get(ctx, "/files/"+url.PathEscape(fileKey)+"/nodes", query, &nodesResp); err != nil {
		return nil, err
	}

	return &nodesResp, nil
}

// GetImages asks the render API for download URLs of the given nodes in one batched request.
// The returned URLs are short-lived; nodes Figma could not render are absent or null in the map.
func (c *Client) GetImages(ctx context.Context, fileKey string, nodeIDs []string, format string, scale float64) (*ImagesResponse, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(nodeIDs, ","))
	query.Set("format", format)
	query.Set("scale", strconv.FormatFloat(scale, 'f', -1, 64))

	var imgResp ImagesResponse
	if err := c.get(ctx, "/images/"+url.PathEscape(fileKey), query, &imgResp); err != nil {
		return nil, err
	}

	if imgResp.Images == nil {
		imgResp.Images = make(map[string]*string)
	}

	return &imgResp, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
// Implements automatic retry logic (up to 3 attempts) with linear backoff for handling rate limits
// and temporary failures. The request retries on transport errors, 429 and 5xx responses.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		body, retry, err := c.do(ctx, endpoint)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			return nil
		}

		lastErr = err
		if !retry || attempt == maxRetries {
			break
		}

		if err := sleep(ctx, time.Duration(attempt)*c.retryDelay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

// do executes a single request. The boolean reports whether the failure is worth retrying.
func (c *Client) do(ctx context.Context, endpoint string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	if c.oauth {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	} else {
		req.Header.Set("X-Figma-Token", c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A canceled or expired context will not get better by retrying.
		retry := ctx.Err() == nil
		return nil, retry, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, newAPIError(resp.StatusCode, body)
	}

	return body, false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// APIError is returned when the Figma API answers with a non-200 status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("figma API request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsAPIStatus reports whether err is an *APIError with the given status code.
func IsAPIStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func newAPIError(status int, body []byte) *APIError {
	var msg string
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		msg = "access denied: check the access token and its permissions on the file"
	case http.StatusNotFound:
		msg = "file not found: check the file key"
	case http.StatusTooManyRequests:
		msg = "rate limit reached: retry later"
	default:
		msg = http.StatusText(status)
	}

	var payload struct {
		Err     string `json:"err"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Err != "":
			msg += ": " + payload.Err
		case payload.Message != "":
			msg += ": " + payload.Message
		}
	}

	return &APIError{StatusCode: status, Message: msg}
}
