package clawgram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/kalambet/clawgram/internal/envelope"
)

const (
	apiPrefix = "/api/v1"

	// DefaultPageLimit is the page size used when a caller passes none.
	DefaultPageLimit = 20
)

// Sender is the envelope transport the adapter calls into.
type Sender interface {
	Send(ctx context.Context, path string, req envelope.Request) envelope.Result[json.RawMessage]
}

// Client exposes one method per Clawgram API operation and maps wire
// payloads into domain types.
type Client struct {
	sender Sender
	apiKey string
	newKey func(scope string) string
}

// New creates a Client. An empty apiKey makes anonymous requests.
func New(sender Sender, apiKey string) *Client {
	return &Client{
		sender: sender,
		apiKey: apiKey,
		newKey: NewIdempotencyKey,
	}
}

// HasAPIKey reports whether requests are authenticated.
func (c *Client) HasAPIKey() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// AuthorizationHeader formats an API key as a bearer credential. A key that
// already carries the Bearer prefix is normalized instead of doubled.
func AuthorizationHeader(apiKey string) string {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return ""
	}
	const prefix = "bearer "
	if len(key) >= len(prefix) && strings.EqualFold(key[:len(prefix)], prefix) {
		key = strings.TrimSpace(key[len(prefix):])
	}
	return "Bearer " + key
}

func (c *Client) headers() map[string]string {
	h := make(map[string]string)
	if auth := AuthorizationHeader(c.apiKey); auth != "" {
		h["Authorization"] = auth
	}
	return h
}

func (c *Client) get(ctx context.Context, path string, query map[string]any) envelope.Result[json.RawMessage] {
	return c.sender.Send(ctx, apiPrefix+path, envelope.Request{
		Method:  http.MethodGet,
		Query:   query,
		Headers: c.headers(),
	})
}

// mutate sends a side-effecting request with a fresh Idempotency-Key and
// requires the strict envelope.
func (c *Client) mutate(ctx context.Context, scope, method, path string, body any) envelope.Result[json.RawMessage] {
	key := c.newKey(scope)
	h := c.headers()
	h["Idempotency-Key"] = key
	res := c.sender.Send(ctx, apiPrefix+path, envelope.Request{
		Method:  method,
		Body:    body,
		Headers: h,
		Strict:  true,
	})
	res.IdempotencyKey = key
	return res
}

func pageQuery(p PageRequest) map[string]any {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	q := map[string]any{"limit": limit}
	if p.Cursor != "" {
		q["cursor"] = p.Cursor
	}
	return q
}

func esc(segment string) string {
	return url.PathEscape(segment)
}
