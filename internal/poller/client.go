package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coopvalles/asamblea-api/internal/dto"
)

// Client is a thin HTTP client for the aviso endpoints, used by the watch
// CLI and any other polling consumer.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the given API base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// MisAvisos fetches the recipient feed.
func (c *Client) MisAvisos(ctx context.Context) ([]dto.FeedItem, error) {
	var items []dto.FeedItem
	if err := c.do(ctx, http.MethodGet, "/avisos/mis-avisos", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UnreadCount fetches the unread tally.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var payload dto.UnreadCountResponse
	if err := c.do(ctx, http.MethodGet, "/avisos/unread-count", nil, &payload); err != nil {
		return 0, err
	}
	return payload.UnreadCount, nil
}

// MarkRead marks one aviso read.
func (c *Client) MarkRead(ctx context.Context, avisoID string) error {
	return c.do(ctx, http.MethodPut, "/avisos/"+avisoID+"/leido", nil, nil)
}

// Confirm acknowledges a confirmation-required aviso.
func (c *Client) Confirm(ctx context.Context, avisoID string) error {
	return c.do(ctx, http.MethodPut, "/avisos/"+avisoID+"/confirmar", nil, nil)
}

// Respond sends an answer to a response-required aviso.
func (c *Client) Respond(ctx context.Context, avisoID string, req dto.RespondRequest) error {
	return c.do(ctx, http.MethodPut, "/avisos/"+avisoID+"/responder", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		if env.Error != nil {
			return fmt.Errorf("%s %s: %s (%s)", method, path, env.Error.Message, env.Error.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if dest != nil {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("decode payload for %s: %w", path, err)
		}
	}
	return nil
}
