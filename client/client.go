// Package client implements the authenticated HTTP client for the Roost
// backend: bearer-token injection on every outbound request, transparent
// refresh-and-retry on access-token expiry, and the auth operations that
// create and destroy sessions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/roostapp/roost-go/credstore"
)

// defaultTimeout bounds every outbound request. A timeout is a transport
// error like any other: no retry except the 401 case.
const defaultTimeout = 10 * time.Second

// Client talks to the Roost REST backend. All authenticated traffic goes
// through an internal transport that injects the stored access token and
// recovers from token expiry at most once per request.
type Client struct {
	baseURL    string
	store      credstore.Store
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *Metrics

	timeout      time.Duration
	singleFlight bool
	base         http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTransport sets the underlying round tripper used for actual
// network traffic. Mainly useful in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// WithSingleFlight shares one in-flight refresh between all concurrent
// 401 recoveries. Required when the backend rotates refresh tokens with
// single-use semantics; otherwise concurrent refreshes can race and
// force a spurious logout.
func WithSingleFlight() Option {
	return func(c *Client) {
		c.singleFlight = true
	}
}

// WithMetrics instruments the client with Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client for the backend at baseURL, persisting session
// credentials in store.
func New(baseURL string, store credstore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		timeout: defaultTimeout,
		base:    http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	r := &refresher{
		endpoint: c.baseURL + "/refresh",
		httpClient: &http.Client{
			Transport: c.base,
			Timeout:   c.timeout,
		},
		store:        store,
		logger:       c.logger,
		metrics:      c.metrics,
		singleFlight: c.singleFlight,
	}
	c.httpClient = &http.Client{
		Transport: &authTransport{
			base:      c.base,
			store:     store,
			refresher: r,
			logger:    c.logger,
			metrics:   c.metrics,
		},
		Timeout: c.timeout,
	}
	return c
}

// Store returns the credential store backing this client.
func (c *Client) Store() credstore.Store {
	return c.store
}

// do issues a JSON request and decodes the envelope's data into out when
// out is non-nil. Non-2xx responses become *APIError carrying the
// server's message and any field-level validation errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	env, err := c.doEnvelope(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decoding payload: %w", method, path, err)
		}
	}
	return nil
}

// doEnvelope issues a JSON request and returns the decoded response
// envelope on success.
func (c *Client) doEnvelope(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if decErr := json.NewDecoder(resp.Body).Decode(&env); decErr != nil && resp.StatusCode < 400 {
		return nil, fmt.Errorf("%s %s: decoding response: %w", method, path, decErr)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: env.Message,
			Fields:  env.Errors,
		}
	}
	return &env, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}
