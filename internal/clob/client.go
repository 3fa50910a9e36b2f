// Package clob provides the order-book fetch client (Polymarket CLOB REST API).
package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/quantfield/polymarket-data/internal/gamma"
	"github.com/quantfield/polymarket-data/internal/model"
	"github.com/quantfield/polymarket-data/internal/retry"
)

// Book is a full order book as returned by GET /book, best-first per side.
type Book struct {
	Market    string             `json:"market"`
	AssetID   string             `json:"asset_id"`
	Timestamp string             `json:"timestamp"`
	Hash      string             `json:"hash"`
	Bids      []model.PriceLevel `json:"bids"`
	Asks      []model.PriceLevel `json:"asks"`
}

// Client provides access to the CLOB REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	policy     retry.Policy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new CLOB API client.
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
			Retryable:   gamma.Retryable,
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

// Book fetches the order book for a single token.
func (c *Client) Book(ctx context.Context, tokenID string) (*Book, error) {
	v := url.Values{}
	v.Set("token_id", tokenID)
	fullURL := c.baseURL + "/book?" + v.Encode()

	var book Book
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return &gamma.APIError{StatusCode: resp.StatusCode, Body: body}
		}

		if err := json.Unmarshal(body, &book); err != nil {
			return fmt.Errorf("unmarshal book: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get book %s: %w", tokenID, err)
	}

	return &book, nil
}
