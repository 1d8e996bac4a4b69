// Package indexer provides a client for the Goldsky Polymarket subgraph.
// It queries the most recent orders per wallet address over GraphQL and
// handles delivery with retry logic for transient failures.
//
// The subgraph schema is an external contract that has changed before; raw
// numeric fields arrive as strings (BigInt serialization) and are parsed
// downstream with fail-soft fallbacks.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RawMarket is the nested market info attached to a subgraph order.
type RawMarket struct {
	Title       string   `json:"title"`
	Outcomes    []string `json:"outcomes"`
	ConditionID string   `json:"conditionId"`
}

// RawOrder is a single order record as returned by the subgraph.
type RawOrder struct {
	ID           string    `json:"id"`
	Amount       string    `json:"amount"`       // fixed-point USDC, 1e6 scale
	OutcomeIndex string    `json:"outcomeIndex"` // ordinal into Market.Outcomes
	Timestamp    string    `json:"timestamp"`    // unix seconds
	Price        string    `json:"price"`
	Market       RawMarket `json:"market"`
}

const orderQuery = `{
  orders(first: %d, orderBy: timestamp, orderDirection: desc, where: {creator: "%s"}) {
    id
    amount
    outcomeIndex
    timestamp
    price
    market {
      title
      outcomes
      conditionId
    }
  }
}`

// Client provides access to the Goldsky subgraph
type Client struct {
	subgraphURL    string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new subgraph client
func NewClient(subgraphURL string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		subgraphURL: subgraphURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// FetchOrders retrieves the most recent limit orders created by the given
// wallet, newest first. The wallet is lowercased into the creator filter
// since the subgraph stores addresses in lowercase.
func (c *Client) FetchOrders(ctx context.Context, wallet string, limit int) ([]RawOrder, error) {
	query := fmt.Sprintf(orderQuery, limit, strings.ToLower(wallet))

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	resp, err := c.doRequest(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders for %s: %w", wallet, err)
	}
	defer resp.Body.Close()

	var response struct {
		Data struct {
			Orders []RawOrder `json:"orders"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("subgraph error: %s", response.Errors[0].Message)
	}

	return response.Data.Orders, nil
}

// doRequest performs the GraphQL POST with retry logic
func (c *Client) doRequest(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.subgraphURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !sleepCtx(ctx, c.retryDelayBase*time.Duration(i+1)) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status: %d", resp.StatusCode)
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				// Client errors won't heal on retry
				return nil, lastErr
			}
			if !sleepCtx(ctx, c.retryDelayBase*time.Duration(i+1)) {
				return nil, ctx.Err()
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// sleepCtx sleeps for d or until ctx is done, returning false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
