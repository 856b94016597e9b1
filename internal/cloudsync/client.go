package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"whiskeyballet/internal/core/apperror"
)

// ProbeTimeout bounds the connectivity check so a dead link is
// detected quickly.
const ProbeTimeout = 3 * time.Second

// Client talks to the remote sync endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	probe   *http.Client
}

// NewClient creates a sync client. The base URL should point at the
// /v1/sync endpoint root.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		probe:   &http.Client{Timeout: ProbeTimeout},
	}
}

// PushRequest is the wire body for a queue replay.
type PushRequest struct {
	Queue     []Entry `json:"queue"`
	Timestamp int64   `json:"timestamp"`
}

// ItemResult is the per-entry replay outcome. Status is "synced",
// "already_exists" or "deleted".
type ItemResult struct {
	Success    bool   `json:"success"`
	Action     Action `json:"action"`
	ID         int64  `json:"id"`
	Collection string `json:"collectionName"`
	Status     string `json:"status,omitempty"`
}

// PushResponse wraps the per-item results.
type PushResponse struct {
	Results []ItemResult `json:"results"`
}

// StoreCount is one collection's remote document count.
type StoreCount struct {
	Store string `json:"store"`
	Count int    `json:"count"`
}

// StatusResponse is the plain-GET status summary.
type StatusResponse struct {
	Status   string       `json:"status"`
	Database []StoreCount `json:"database"`
}

// Probe checks reachability with a short HEAD request. Any response,
// regardless of status code, counts as online.
func (c *Client) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.probe.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Push replays queued entries and returns the per-item results.
func (c *Client) Push(ctx context.Context, owner string, entries []Entry) ([]ItemResult, error) {
	body, err := json.Marshal(PushRequest{
		Queue:     entries,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, owner)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var parsed PushResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	return parsed.Results, nil
}

// Pull fetches the full remote document set for the owner.
func (c *Client) Pull(ctx context.Context, owner string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?action=pull", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, owner)
	return c.do(req)
}

// Status fetches the remote status summary.
func (c *Client) Status(ctx context.Context, owner string) (StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return StatusResponse{}, err
	}
	c.setHeaders(req, owner)

	raw, err := c.do(req)
	if err != nil {
		return StatusResponse{}, err
	}
	var parsed StatusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return StatusResponse{}, fmt.Errorf("decode status response: %w", err)
	}
	return parsed, nil
}

func (c *Client) setHeaders(req *http.Request, owner string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Admin-ID", owner)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.NewSyncUnavailable(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sync endpoint error %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
