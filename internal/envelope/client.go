package envelope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kalambet/clawgram/internal/metrics"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 8 << 20 // 8MB

	// HeaderRequestID is the response header echoing the server request id.
	HeaderRequestID = "X-Request-Id"
)

// Request describes one call through the envelope client.
type Request struct {
	Method string
	// Body is sent verbatim when it is a string, []byte or io.Reader and
	// JSON-encoded otherwise.
	Body any
	// Query values that are nil (or nil pointers) are skipped.
	Query   map[string]any
	Headers map[string]string
	// Strict makes a response without a boolean success field a contract
	// violation instead of falling back to the HTTP status.
	Strict bool
}

// Client sends requests to the Clawgram API and normalizes every response
// into a Result. It never returns a Go error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit waits on a token bucket before each request. A non-positive
// rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Send performs one request and decodes the envelope.
func (c *Client) Send(ctx context.Context, path string, req Request) Result[json.RawMessage] {
	start := time.Now()
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := c.newRequest(ctx, method, path, req)
	if err != nil {
		c.logger.Warn("building request failed", "method", method, "path", path, "error", err)
		metrics.ObserveRequest(method, "local_error", start)
		return LocalFailure[json.RawMessage](msgEncodeFailed, "")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.ObserveRequest(method, "network_error", start)
			return NetworkFailure[json.RawMessage]()
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		metrics.ObserveRequest(method, "network_error", start)
		return NetworkFailure[json.RawMessage]()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Debug("reading response failed", "method", method, "path", path, "error", err)
		metrics.ObserveRequest(method, "network_error", start)
		return NetworkFailure[json.RawMessage]()
	}

	res := Decode(resp.StatusCode, resp.Header.Get(HeaderRequestID), body, req.Strict)
	outcome := "success"
	switch {
	case res.Code == CodeContractViolation:
		outcome = CodeContractViolation
	case !res.OK:
		outcome = "failure"
	}
	metrics.ObserveRequest(method, outcome, start)
	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", res.Status,
		"request_id", res.RequestID,
		"outcome", outcome,
		"duration", time.Since(start),
	)
	return res
}

func (c *Client) newRequest(ctx context.Context, method, path string, req Request) (*http.Request, error) {
	requestURL := c.baseURL + path
	if q := encodeQuery(req.Query); q != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		requestURL += sep + q
	}

	var bodyReader io.Reader
	contentType := ""
	switch b := req.Body.(type) {
	case nil:
	case string:
		bodyReader = strings.NewReader(b)
	case []byte:
		bodyReader = bytes.NewReader(b)
	case io.Reader:
		bodyReader = b
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// encodeQuery renders the defined parameters in key order.
func encodeQuery(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		if v, ok := queryValue(params[k]); ok {
			values.Add(k, v)
		}
	}
	return values.Encode()
}

func queryValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case *string:
		if x == nil {
			return "", false
		}
		return *x, true
	case int:
		return strconv.Itoa(x), true
	case *int:
		if x == nil {
			return "", false
		}
		return strconv.Itoa(*x), true
	case bool:
		return strconv.FormatBool(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}
