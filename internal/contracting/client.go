// Package contracting implements the client for the target "contracting"
// system the bridge writes contracts into.
package contracting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"contracting-bridge/internal/config"
	"contracting-bridge/internal/data"
	"contracting-bridge/internal/journal"
)

// ErrNotFound reports that the contracting system has no contract with the
// requested id. It is an expected control-flow signal on the creation path,
// not a failure.
var ErrNotFound = errors.New("contract not found")

// ErrArchived reports that the contract id is permanently retired on the
// contracting side. Archived contracts are terminal and must never be
// retried.
var ErrArchived = errors.New("contract archived")

// StatusError carries an unexpected HTTP status with the response body for
// logging.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client wraps the contracting REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
}

// NewClient builds a contracting client from the endpoint configuration.
func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    fmt.Sprintf("%s/api/%s", cfg.URL, cfg.Version),
		key:        cfg.Key,
	}
}

// GetContract probes the contracting system for an existing contract.
// Returns ErrNotFound when absent and ErrArchived when the id is retired.
func (c *Client) GetContract(ctx context.Context, contractID string) (*data.Response[data.ContractData], error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/contracts/%s", c.baseURL, contractID), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("get contract %s: %w", contractID, err)
	}

	var out data.Response[data.ContractData]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateContract submits a new contract. Submission is idempotent by id on
// the contracting side, so redelivery after an ambiguous failure is safe.
func (c *Client) CreateContract(ctx context.Context, payload *data.ContractData) (*data.Response[data.ContractData], error) {
	body, err := json.Marshal(data.Response[*data.ContractData]{Data: payload})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/contracts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("create contract %s: %w", payload.ID, err)
	}

	var out data.Response[data.ContractData]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", journal.RequestID())
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
}

func checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrArchived
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
}
