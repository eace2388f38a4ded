package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mesh-intelligence/cling/internal/syncer"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// ErrNotConfigured is returned by NewClient when URL or key is missing.
var ErrNotConfigured = errors.New("remote not configured")

// DefaultBackoff is the first retry delay; later delays double.
const DefaultBackoff = 200 * time.Millisecond

// Client is the HTTP client for a sync authority. Failures are returned as
// *syncer.TransportError classified as retryable or auth. Network errors and
// 5xx responses are retried with exponential backoff.
type Client struct {
	base    *url.URL
	key     string
	http    *http.Client
	retries uint64
	backoff time.Duration
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBackoff sets the first retry delay.
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing remote url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote url %q: scheme must be http or https", cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		base:    base,
		key:     cfg.Key,
		http:    &http.Client{Timeout: timeout},
		retries: cfg.Retries,
		backoff: DefaultBackoff,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Push sends rec with PUT /v1/records/{kind}/{id}.
func (c *Client) Push(ctx context.Context, rec types.Record) (types.Ack, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return types.Ack{}, fmt.Errorf("encoding record: %w", err)
	}
	path := RecordsPath + "/" + url.PathEscape(string(rec.Kind)) + "/" + url.PathEscape(rec.ID)
	var ack types.Ack
	if err := c.do(ctx, "push", http.MethodPut, path, nil, body, &ack); err != nil {
		return types.Ack{}, err
	}
	return ack, nil
}

// Changes fetches a page with GET /v1/changes.
func (c *Client) Changes(ctx context.Context, since time.Time, limit int) (types.ChangePage, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var page types.ChangePage
	if err := c.do(ctx, "pull", http.MethodGet, ChangesPath, q, nil, &page); err != nil {
		return types.ChangePage{}, err
	}
	return page, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
		if err != nil {
			return &syncer.TransportError{Op: op, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("apikey", c.key)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Debug("remote request failed", "op", op, "attempt", attempt, "error", err)
			return retry.RetryableError(&syncer.TransportError{Op: op, Retryable: true, Err: err})
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			te := &syncer.TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(readError(resp.Body))}
			switch {
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				te.Auth = true
				return te
			case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
				te.Retryable = true
				c.logger.Debug("remote request failed", "op", op, "attempt", attempt, "status", resp.StatusCode)
				return retry.RetryableError(te)
			default:
				return te
			}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &syncer.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
		}
		return nil
	})
}

// readError extracts a message from an error response.
func readError(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
		return eb.Error
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return "no response body"
}

var _ syncer.Remote = (*Client)(nil)
