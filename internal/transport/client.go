// Package transport implements the JSON HTTP client for the admin API.
//
// Every request carries the bearer token read from the process-wide session
// at send time. Failures are classified into the apperr taxonomy before they
// are returned; a 401 additionally expires the session credentials the
// request was sent with.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/filters"
	"github.com/starford/raido/internal/session"
)

// maxErrBody bounds how much of an error response is read for classification.
const maxErrBody = 64 << 10

// Client is the HTTP client for the admin API.
type Client struct {
	baseURL string
	http    *http.Client
	sess    *session.Store
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying http.Client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client. timeout is the fixed per-request ceiling; exceeding
// it surfaces as a network error.
func New(baseURL string, timeout time.Duration, sess *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		sess:    sess,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetList fetches a paginated listing. The raw body is returned for the
// envelope normalizer; list endpoints are the one place the response shape is
// not trusted.
func (c *Client) GetList(ctx context.Context, path string, params filters.Params) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, params.Values(), nil, "")
}

// Get fetches a detail endpoint.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, nil, "")
}

// Post sends a JSON payload. payload may be nil for bodyless action
// endpoints.
func (c *Client) Post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, ct, err := encodeJSON(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, nil, body, ct)
}

// Put sends a JSON payload to an update endpoint.
func (c *Client) Put(ctx context.Context, path string, payload any) ([]byte, error) {
	body, ct, err := encodeJSON(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPut, path, nil, body, ct)
}

// Delete calls a removal endpoint.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil, "")
}

// Export streams a binary download (CSV/XLSX/PDF). The caller owns the
// returned reader. Exports bypass the cache layer entirely.
func (c *Client) Export(ctx context.Context, path string, params filters.Params) (io.ReadCloser, string, error) {
	req, gen, err := c.newRequest(ctx, http.MethodGet, path, params.Values(), nil, "")
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", apperr.Network(err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		resp.Body.Close()
		return nil, "", c.classify(resp.StatusCode, body, gen)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// Upload sends a multipart form with one file part plus extra text fields.
// The content type is taken from the multipart writer so the boundary is
// correct; callers never set it themselves.
func (c *Client) Upload(ctx context.Context, path, field, filename string, r io.Reader, extra map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("transport: write field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("transport: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("transport: copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("transport: close multipart: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string) (*http.Request, uint64, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, 0, fmt.Errorf("transport: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	tok, gen := c.sess.Token()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, gen, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string) ([]byte, error) {
	req, gen, err := c.newRequest(ctx, method, path, q, body, contentType)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("api request", slog.String("method", method), slog.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, c.classify(resp.StatusCode, errBody, gen)
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Network(err)
	}
	return out, nil
}

// classify maps an error response and handles the one global side effect:
// expiring the session the request was sent with on a 401.
func (c *Client) classify(status int, body []byte, gen uint64) *apperr.Error {
	e := apperr.Classify(status, body)
	if e.Kind == apperr.KindUnauthorized {
		c.sess.Expire(gen)
	}
	return e
}

func encodeJSON(payload any) (io.Reader, string, error) {
	if payload == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("transport: marshal payload: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}
