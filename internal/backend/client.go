// Package backend talks to the marketplace REST API on behalf of the signed-in
// administrator.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/talentiave/cms/pkg/logger"
	"github.com/talentiave/cms/pkg/metrics"
)

// LoginPath is where an invalidated session is sent.
const LoginPath = "/auth/login"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 8 << 20

// Credentials is the part of a session the client needs.
type Credentials interface {
	Credential() (string, bool)
	ClearCredential(ctx context.Context) error
}

// Navigator receives the redirect target when a session is invalidated.
type Navigator interface {
	Navigate(path string)
}

const defaultTimeout = 15 * time.Second

// Client calls the backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger

	timeout    time.Duration
	hasTimeout bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A timeout given with
// WithTimeout still applies, on a copy of hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each call. Zero disables the client-level timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
			c.hasTimeout = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hasTimeout && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// RequestOption customises a single call.
type RequestOption func(*request)

type request struct {
	headers http.Header
	query   url.Values
	body    any
}

// WithHeader sets a header. Caller headers win over the defaults.
func WithHeader(key, value string) RequestOption {
	return func(r *request) { r.headers.Set(key, value) }
}

// WithQuery appends query parameters.
func WithQuery(q url.Values) RequestOption {
	return func(r *request) {
		for k, vs := range q {
			for _, v := range vs {
				r.query.Add(k, v)
			}
		}
	}
}

// WithJSON sends v as the JSON request body.
func WithJSON(v any) RequestOption {
	return func(r *request) { r.body = v }
}

// AuthFetch performs an authenticated call.
//
// A 403 response clears the credential, navigates to LoginPath and returns
// (nil, nil); callers must treat a nil result as terminal. Other non-2xx
// responses yield *APIError. A 2xx body that is not JSON yields *DecodeError.
// An empty 2xx body is returned as JSON null.
func (c *Client) AuthFetch(ctx context.Context, creds Credentials, nav Navigator, method, path string, opts ...RequestOption) (json.RawMessage, error) {
	token, hasToken := "", false
	if creds != nil {
		token, hasToken = creds.Credential()
	}
	defaults := http.Header{}
	defaults.Set("Content-Type", "application/json")
	if hasToken {
		defaults.Set("Authorization", "Bearer "+token)
	}

	status, body, err := c.do(ctx, method, path, defaults, opts)
	if err != nil {
		return nil, err
	}

	if status == http.StatusForbidden {
		metrics.RecordSessionInvalidated("forbidden")
		c.log.Info(ctx, "backend rejected credential; signing out",
			logger.String("method", method), logger.String("path", path))
		if creds != nil {
			if cerr := creds.ClearCredential(ctx); cerr != nil {
				c.log.Error(ctx, "failed to clear credential", logger.Error(cerr))
			}
		}
		if nav != nil {
			nav.Navigate(LoginPath)
		}
		return nil, nil
	}

	return c.interpret(endpointLabel(path), status, body)
}

// interpret maps a completed response to a result or error.
func (c *Client) interpret(endpoint string, status int, body []byte) (json.RawMessage, error) {
	if status < 200 || status > 299 {
		return nil, &APIError{Status: status, Message: errorMessage(body)}
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		metrics.RecordUpstreamError(endpoint, "decode")
		return nil, &DecodeError{Endpoint: endpoint, Err: errors.New("body is not JSON")}
	}
	return json.RawMessage(trimmed), nil
}

// do sends the request and reads the body.
func (c *Client) do(ctx context.Context, method, path string, defaults http.Header, opts []RequestOption) (int, []byte, error) {
	req := &request{headers: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(req)
	}

	target := c.baseURL + path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range defaults {
		httpReq.Header[k] = vs
	}
	for k, vs := range req.headers {
		httpReq.Header[k] = vs
	}

	endpoint := endpointLabel(path)
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		metrics.RecordUpstreamError(endpoint, "transport")
		c.log.Warn(ctx, "backend unreachable",
			logger.String("method", method), logger.String("path", path), logger.Error(err))
		return 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordUpstreamError(endpoint, "read")
		return 0, nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	metrics.RecordUpstreamRequest(endpoint, method, strconv.Itoa(resp.StatusCode), float64(latency.Milliseconds()))
	c.log.Debug(ctx, "backend call",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("latency", latency))

	return resp.StatusCode, body, nil
}

// errorMessage extracts {"message": ...} from a failure body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || strings.TrimSpace(payload.Message) == "" {
		return DefaultErrorMessage
	}
	return payload.Message
}

// endpointLabel reduces a path to a bounded metrics label: the first segment,
// plus the second when it is not numeric ("/talents/activate/3" becomes
// "talents/activate").
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "root"
	}
	if len(parts) > 1 {
		if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
			return parts[0] + "/" + parts[1]
		}
	}
	return parts[0]
}
