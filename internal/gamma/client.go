// Package gamma provides the Market Directory client (Polymarket Gamma API).
package gamma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quantfield/polymarket-data/internal/retry"
)

// APIError represents a non-2xx response from the directory.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gamma api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// Retryable reports whether an error from this client is worth retrying:
// transport errors are, API errors only for 5xx and 429.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}

// Client provides access to the Gamma REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	policy     retry.Policy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Gamma API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
		policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Retryable:   Retryable,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.policy.MaxAttempts = max
		c.policy.BaseDelay = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// get performs a GET request with retries and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	var body []byte

	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		body, err = c.doRequest(ctx, path, query)
		return err
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}

// Query selects which markets the directory returns.
type Query struct {
	Closed    *bool
	Limit     int
	Offset    int
	Order     string // e.g. "volume24hr"
	Ascending *bool
}

// Markets fetches markets matching the query.
func (c *Client) Markets(ctx context.Context, q Query) ([]Market, error) {
	v := url.Values{}
	if q.Closed != nil {
		v.Set("closed", strconv.FormatBool(*q.Closed))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Ascending != nil {
		v.Set("ascending", strconv.FormatBool(*q.Ascending))
	}

	var markets []Market
	if err := c.get(ctx, "/markets", v, &markets); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}

	return markets, nil
}

// ActiveMarkets fetches up to limit open markets.
func (c *Client) ActiveMarkets(ctx context.Context, limit int) ([]Market, error) {
	closed := false
	return c.Markets(ctx, Query{Closed: &closed, Limit: limit})
}

// TopMarketsByVolume fetches up to limit open markets ordered by 24h volume,
// most active first.
func (c *Client) TopMarketsByVolume(ctx context.Context, limit int) ([]Market, error) {
	closed := false
	asc := false
	return c.Markets(ctx, Query{
		Closed:    &closed,
		Limit:     limit,
		Order:     "volume24hr",
		Ascending: &asc,
	})
}
