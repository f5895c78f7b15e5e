// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/kkamji/weasel-tui/internal/attach"
	"github.com/kkamji/weasel-tui/internal/logging"
)

// Configuration constants for the Weasel backend.
const (
	// DefaultBaseURL is the API root of a local backend.
	DefaultBaseURL = "http://localhost:8080/v1"

	// DefaultImageBaseURL is where bare image keys are served from.
	DefaultImageBaseURL = "https://weasel-images.s3.amazonaws.com/"

	// DefaultTimeout bounds a request, including answer generation.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	userAgent = "weasel-tui/1.0"
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Weasel REST backend. It is safe for concurrent use.
type Client struct {
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *log.Logger
}

// NewClient creates a client for the API rooted at baseURL with an
// in-memory cookie jar.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		imageBaseURL: DefaultImageBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  logging.With("api"),
	}
}

// WithImageBaseURL sets the prefix for bare image keys.
func (c *Client) WithImageBaseURL(base string) *Client {
	c.imageBaseURL = base
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithJar sets the cookie jar holding the session.
func (c *Client) WithJar(jar http.CookieJar) *Client {
	c.httpClient.Jar = jar
	return c
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables the cap.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithLogger sets the request logger.
func (c *Client) WithLogger(logger *log.Logger) *Client {
	c.logger = logger
	return c
}

// HasSession reports whether the jar holds a cookie for the backend.
func (c *Client) HasSession() bool {
	u, err := url.Parse(c.baseURL + "/")
	if err != nil || c.httpClient.Jar == nil {
		return false
	}
	return len(c.httpClient.Jar.Cookies(u)) > 0
}

// ResolveImage turns a bare image key into an absolute URL.
func (c *Client) ResolveImage(ref string) string {
	return resolveImage(c.imageBaseURL, ref)
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// endpoint joins path (and optional query) onto the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "op", op, "err", err, "duration", time.Since(start))
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.logResponse(req, resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// get performs a GET and decodes a JSON response into v (when non-nil).
func (c *Client) get(ctx context.Context, op, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, nil), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	body, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := decodeJSON(body, v); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	return nil
}

// postJSON sends payload as a JSON body and decodes the response into v.
func (c *Client) postJSON(ctx context.Context, op, path string, payload, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := decodeJSON(body, v); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	return nil
}

// sendForm sends a multipart form and decodes the response into v.
func (c *Client) sendForm(ctx context.Context, op, method, target string, form *formBody, v interface{}) error {
	data, contentType, err := form.finish()
	if err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	body, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := decodeJSON(body, v); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	return nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// MULTIPART FORMS
// =============================================================================

// formBody accumulates a multipart/form-data body.
type formBody struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *formBody {
	f := &formBody{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// jsonField adds a plain form field holding the JSON encoding of v.
func (f *formBody) jsonField(name string, v interface{}) {
	if f.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		f.err = err
		return
	}
	f.err = f.w.WriteField(name, string(data))
}

// image adds an image file part.
func (f *formBody) image(name string, img *attach.Image) {
	if f.err != nil || img == nil {
		return
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(name), escapeQuotes(img.Name)))
	h.Set("Content-Type", img.ContentType)
	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = part.Write(img.Data)
}

func (f *formBody) finish() ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return f.buf.Bytes(), f.w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// =============================================================================
// LOGGING
// =============================================================================

// logRequest logs method and path only. Bodies carry prompts and passwords,
// headers carry the session cookie.
func (c *Client) logRequest(req *http.Request) {
	c.logger.Debug("request", "method", req.Method, "path", req.URL.Path)
}

// logResponse logs status and duration.
func (c *Client) logResponse(req *http.Request, resp *http.Response, d time.Duration) {
	level := log.DebugLevel
	if resp.StatusCode >= 400 {
		level = log.WarnLevel
	}
	c.logger.Log(level, "response", "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "duration", d.Round(time.Millisecond))
}
