package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/session"
	"github.com/aiot-hub/aiot/backend/go-client/internal/storage"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	HeaderCSRF      = "X-CSRF-Token"
	HeaderRequestID = "X-Request-ID"
	contentTypeJSON = "application/json"
)

// Client issues JSON requests against the platform API with the session's
// bearer and CSRF headers attached.
type Client struct {
	base    *url.URL
	http    *http.Client
	sess    *session.Session
	limiter *rate.Limiter
	agent   string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. A cookie jar is added when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit throttles outbound requests. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.agent = ua }
}

// New creates a client for baseURL, e.g. "https://api.example.com/api".
func New(baseURL string, sess *session.Session, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: &http.Client{}, sess: sess, agent: "aiot-go-client"}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Session returns the session the client reads headers from.
func (c *Client) Session() *session.Session { return c.sess }

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base.String() }

// Options mirror the per-call knobs of a fetch call.
type Options struct {
	Header http.Header
	Query  url.Values
	// Body is JSON-encoded unless it is a *Multipart, []byte or io.Reader.
	Body interface{}
}

func (c *Client) resolve(path string, q url.Values) (*url.URL, error) {
	var u url.URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		abs, err := url.Parse(path)
		if err != nil {
			return nil, err
		}
		u = *abs
	} else {
		u = *c.base
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path, u.RawQuery = path[:i], path[i+1:]
		}
		u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(q) > 0 {
		merged := u.Query()
		for k, vs := range q {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		u.RawQuery = merged.Encode()
	}
	return &u, nil
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// csrfToken prefers the session value and falls back to the cookie jar.
func (c *Client) csrfToken(u *url.URL) string {
	if c.sess != nil {
		if tok := c.sess.CSRFToken(); tok != "" {
			return tok
		}
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == storage.KeyCSRF && ck.Value != "" {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, opts *Options) (*http.Request, error) {
	if opts == nil {
		opts = &Options{}
	}
	u, err := c.resolve(path, opts.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := contentTypeJSON
	switch b := opts.Body.(type) {
	case nil:
	case *Multipart:
		ct, err := b.finish()
		if err != nil {
			return nil, err
		}
		body, contentType = b.reader(), ct
	case []byte:
		body = bytes.NewReader(b)
	case io.Reader:
		body = b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if _, multipart := opts.Body.(*Multipart); multipart {
		// the writer's boundary always wins over a caller-supplied type
		req.Header.Set("Content-Type", contentType)
	} else if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", contentTypeJSON)
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if c.agent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.agent)
	}
	if req.Header.Get("Authorization") == "" && c.sess != nil {
		if tok := c.sess.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if isMutating(method) && req.Header.Get(HeaderCSRF) == "" {
		if tok := c.csrfToken(u); tok != "" {
			req.Header.Set(HeaderCSRF, tok)
		}
	}
	return req, nil
}

// Do sends the request and decodes a JSON response into out (nil discards it).
// Non-2xx responses return *Error.
func (c *Client) Do(ctx context.Context, method, path string, opts *Options, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, opts)
	if err != nil {
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ClientRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClientRequests.WithLabelValues(method, metrics.CodeClass(0)).Inc()
		logger.Warnf("%s %s failed: %v", method, req.URL.Path, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.ClientRequests.WithLabelValues(method, metrics.CodeClass(resp.StatusCode)).Inc()
	logger.Debugf("%s %s -> %d in %s (bearer=%t csrf=%t)", method, req.URL.Path, resp.StatusCode,
		time.Since(start).Round(time.Millisecond), req.Header.Get("Authorization") != "", req.Header.Get(HeaderCSRF) != "")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, &Options{Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, &Options{Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, &Options{Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// PostMultipart sends a multipart form; the writer's boundary sets Content-Type.
func (c *Client) PostMultipart(ctx context.Context, path string, body *Multipart, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, &Options{Body: body}, out)
}
