// Package remote implements the service contracts against the
// household ledger server's JSON API. All payload normalization lives
// here, at the boundary, so the core only ever sees the canonical
// split or flat-list shapes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
)

// Client talks to the ledger server. Idempotent reads are retried;
// mutations are attempted exactly once and surface their error for the
// caller to retry explicitly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      service.RetryOptions
}

// NewClient creates a ledger API client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: invalid server URL %q", common.ErrInvalidConfig, baseURL)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: service.RetryOptions{MaxAttempts: 3},
	}, nil
}

// Budget returns the actual-transaction collection.
func (c *Client) Budget() service.CollectionSource {
	return &collection{client: c, path: "budget-transactions", source: model.SourceBudget}
}

// Projected returns the planned-transaction collection.
func (c *Client) Projected() service.CollectionSource {
	return &collection{client: c, path: "projected-transactions", source: model.SourceProjected}
}

// Importer returns the bulk statement importer.
func (c *Client) Importer() service.Importer {
	return &importer{client: c}
}

// Summaries returns the payment-summary read.
func (c *Client) Summaries() service.SummarySource {
	return &summaries{client: c}
}

// getJSON issues a retried GET and returns the raw response body.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var body []byte
	err := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("%w: GET %s: %d - %s", common.ErrRemote, path, resp.StatusCode, strings.TrimSpace(string(payload)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	}, c.retry)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// send issues a single non-retried mutation with an optional JSON body
// and decodes the response into out when out is non-nil.
func (c *Client) send(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", common.ErrRemote, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s: %d - %s", common.ErrRemote, method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeJSON unmarshals a response body with a uniform error wrap.
func decodeJSON(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeJSONBody reads and decodes a streaming response body.
func decodeJSONBody(r io.Reader, out any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return decodeJSON(raw, out)
}

// queryFor renders a filter's non-empty equality fields as query
// parameters. Account is carried in the path, never the query.
func queryFor(filter service.Filter) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("statementPeriod", string(filter.StatementPeriod))
	set("category", filter.Category)
	set("criticality", filter.Criticality)
	set("paymentMethod", filter.PaymentMethod)
	return q
}
