// Package subgraph provides the paginated fill-history client (Goldsky
// order book subgraph, GraphQL).
//
// The subgraph serves OrderFilledEvent records in ascending id order, which
// the extractor's resume cursor depends on. Each page request is retried with
// exponential backoff; GraphQL-level errors are not retried.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/quantfield/polymarket-data/internal/gamma"
	"github.com/quantfield/polymarket-data/internal/model"
	"github.com/quantfield/polymarket-data/internal/retry"
)

// GraphQLError is an error reported inside a 200 response body.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql errors: %v", e.Messages)
}

// Client posts GraphQL queries to the subgraph endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	policy     retry.Policy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new subgraph client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: slog.Default(),
		policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Retryable:   retryable,
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

func retryable(err error) bool {
	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		return false
	}
	return gamma.Retryable(err)
}

type request struct {
	Query string `json:"query"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query posts a GraphQL query with retries and returns the data payload.
func (c *Client) query(ctx context.Context, q string) (json.RawMessage, error) {
	var data json.RawMessage

	err := c.policy.Do(ctx, func(ctx context.Context) error {
		payload, err := json.Marshal(request{Query: q})
		if err != nil {
			return fmt.Errorf("marshal query: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

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

		var r response
		if err := json.Unmarshal(body, &r); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		if len(r.Errors) > 0 {
			msgs := make([]string, len(r.Errors))
			for i, e := range r.Errors {
				msgs[i] = e.Message
			}
			return &GraphQLError{Messages: msgs}
		}

		data = r.Data
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// TotalFills returns the total fill count reported by the subgraph's global
// stats entity. The value is a moving target on a live venue; callers treat
// it as an estimate.
func (c *Client) TotalFills(ctx context.Context) (int64, error) {
	data, err := c.query(ctx, `{ ordersMatchedGlobal(id: "") { tradesQuantity } }`)
	if err != nil {
		return 0, fmt.Errorf("total fills: %w", err)
	}

	var out struct {
		OrdersMatchedGlobal *struct {
			TradesQuantity string `json:"tradesQuantity"`
		} `json:"ordersMatchedGlobal"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("unmarshal total fills: %w", err)
	}
	if out.OrdersMatchedGlobal == nil {
		return 0, nil
	}

	n, err := strconv.ParseInt(out.OrdersMatchedGlobal.TradesQuantity, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse trades quantity %q: %w", out.OrdersMatchedGlobal.TradesQuantity, err)
	}
	return n, nil
}

type fillWire struct {
	ID                string `json:"id"`
	TransactionHash   string `json:"transactionHash"`
	Timestamp         string `json:"timestamp"`
	Maker             string `json:"maker"`
	Taker             string `json:"taker"`
	MakerAssetID      string `json:"makerAssetId"`
	TakerAssetID      string `json:"takerAssetId"`
	MakerAmountFilled string `json:"makerAmountFilled"`
	TakerAmountFilled string `json:"takerAmountFilled"`
	Fee               string `json:"fee"`
}

// FillsPage fetches one page of fills with id greater than cursor, ascending
// by id. An empty cursor means "from the start". An empty result means the
// remote is exhausted.
func (c *Client) FillsPage(ctx context.Context, cursor string, pageSize int) ([]model.Fill, error) {
	where := ""
	if cursor != "" {
		where = fmt.Sprintf(`where: { id_gt: %q }`, cursor)
	}

	q := fmt.Sprintf(`{
		orderFilledEvents(
			first: %d
			orderBy: id
			orderDirection: asc
			%s
		) {
			id
			transactionHash
			timestamp
			maker
			taker
			makerAssetId
			takerAssetId
			makerAmountFilled
			takerAmountFilled
			fee
		}
	}`, pageSize, where)

	data, err := c.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fills page after %q: %w", cursor, err)
	}

	var out struct {
		OrderFilledEvents []fillWire `json:"orderFilledEvents"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal fills page: %w", err)
	}

	fills := make([]model.Fill, 0, len(out.OrderFilledEvents))
	for _, w := range out.OrderFilledEvents {
		fills = append(fills, model.Fill{
			ID:           w.ID,
			TxHash:       w.TransactionHash,
			Timestamp:    parseInt64(w.Timestamp),
			Maker:        w.Maker,
			Taker:        w.Taker,
			MakerAssetID: w.MakerAssetID,
			TakerAssetID: w.TakerAssetID,
			MakerAmount:  parseInt64(w.MakerAmountFilled),
			TakerAmount:  parseInt64(w.TakerAmountFilled),
			Fee:          parseInt64(w.Fee),
		})
	}

	return fills, nil
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
