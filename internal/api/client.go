// Package api is the typed client for the Prema backend. It holds no state
// besides the configured transport: credentials are passed explicitly to
// every authenticated call.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"prema-client/internal/apperr"
	"prema-client/internal/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// Credentials authenticate a single request. The zero value sends no
// Authorization header.
type Credentials struct {
	Token string
}

// IsZero reports whether no token is set.
func (c Credentials) IsZero() bool { return c.Token == "" }

// Client issues requests against the backend.
type Client struct {
	baseURL string
	http    *resty.Client
	logger  zerolog.Logger
}

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithTimeout bounds the total time spent on one request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.SetTimeout(d)
		return nil
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// WithDebugLogging dumps every request and response at debug level.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			base := c.http.GetClient().Transport
			if base == nil {
				base = http.DefaultTransport
			}
			c.http.SetTransport(&debugTransport{base: base, logger: c.logger})
		}
		return nil
	}
}

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}

	c := &Client{
		baseURL: baseURL,
		logger:  log.Logger,
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json").
			SetTimeout(defaultTimeout),
	}

	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// operation names a request for logs and metrics, and carries the message
// shown when the server gives no detail.
type operation struct {
	name     string
	fallback string
}

func (c *Client) request(ctx context.Context, creds Credentials, result any) *resty.Request {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetError(&apperr.ErrorBody{})
	if !creds.IsZero() {
		req.SetAuthToken(creds.Token)
	}
	if result != nil {
		req.SetResult(result)
	}
	return req
}

// execute sends req and converts every failure into an *apperr.Error.
func (c *Client) execute(op operation, req *resty.Request, method, path string) (*resty.Response, error) {
	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		metrics.ObserveRequest(op.name, 0, time.Since(start))
		c.logger.Error().Err(err).Str("op", op.name).Str("path", path).Msg("Request failed")
		return nil, apperr.FromTransport(op.name, err, op.fallback)
	}
	metrics.ObserveRequest(op.name, resp.StatusCode(), time.Since(start))

	if resp.IsError() {
		body, _ := resp.Error().(*apperr.ErrorBody)
		appErr := apperr.FromResponse(op.name, resp.StatusCode(), body, resp.String(), op.fallback)
		c.logger.Error().
			Err(appErr).
			Str("op", op.name).
			Int("status_code", resp.StatusCode()).
			Msg("Request rejected")
		return resp, appErr
	}
	return resp, nil
}
