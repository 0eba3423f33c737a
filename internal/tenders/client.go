// Package tenders implements the read-only client for the source "tenders"
// system: tender snapshots, the resumable change feed and credential
// extraction.
package tenders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"contracting-bridge/internal/config"
	"contracting-bridge/internal/data"
	"contracting-bridge/internal/journal"
)

// FeedDirection selects which way a poller walks the tender-change feed.
type FeedDirection int

const (
	FeedForward FeedDirection = iota
	FeedBackward
)

// Client wraps the tenders REST API. Calls are single-attempt: retry policy
// belongs to the worker that owns the call, not to the transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
}

// NewClient builds a tenders client from the endpoint configuration.
func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    fmt.Sprintf("%s/api/%s", cfg.URL, cfg.Version),
		key:        cfg.Key,
	}
}

// GetTender fetches a full tender snapshot by id.
func (c *Client) GetTender(ctx context.Context, tenderID string) (*data.Response[data.Tender], error) {
	var resp data.Response[data.Tender]
	if err := c.get(ctx, fmt.Sprintf("%s/tenders/%s", c.baseURL, tenderID), &resp); err != nil {
		return nil, fmt.Errorf("get tender %s: %w", tenderID, err)
	}
	return &resp, nil
}

// GetTenderContractsFeed fetches one page of the tender-change feed starting
// at the given cursor. An empty offset starts from the feed head (forward) or
// tail (backward).
func (c *Client) GetTenderContractsFeed(ctx context.Context, offset string, direction FeedDirection) (*data.FeedPage, error) {
	params := url.Values{}
	params.Set("opt_fields", "status")
	if offset != "" {
		params.Set("offset", offset)
	}
	if direction == FeedBackward {
		params.Set("descending", "1")
	}

	var page data.FeedPage
	if err := c.get(ctx, fmt.Sprintf("%s/tenders?%s", c.baseURL, params.Encode()), &page); err != nil {
		return nil, fmt.Errorf("get tenders feed: %w", err)
	}
	return &page, nil
}

// ExtractCredentials fetches the ownership credentials of a tender. The
// contracting system enforces tender ownership on contract creation, so this
// call must succeed before a contract can be submitted.
func (c *Client) ExtractCredentials(ctx context.Context, tenderID string) (*data.Response[data.Credentials], error) {
	var resp data.Response[data.Credentials]
	if err := c.get(ctx, fmt.Sprintf("%s/tenders/%s/extract_credentials", c.baseURL, tenderID), &resp); err != nil {
		return nil, fmt.Errorf("extract credentials for tender %s: %w", tenderID, err)
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Request-ID", journal.RequestID())
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
