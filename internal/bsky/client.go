package bsky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ErrNoSession is returned by authenticated calls made before Login.
var ErrNoSession = errors.New("bsky: not logged in")

// APIError is a non-2xx XRPC response.
type APIError struct {
	Method  string
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xrpc %s: status=%d error=%s message=%s", e.Method, e.Status, e.Code, e.Message)
}

// Client speaks XRPC to a PDS / app view over fasthttp.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int

	mu      sync.RWMutex
	session *Session
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// WithRetry sets the attempt budget for idempotent reads. Writes are sent once.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDial replaces the dialer; tests use it with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

// WithSession seeds the client with an existing session.
func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		logger:         zap.NewNop(),
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the current session, or nil.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

type authMode int

const (
	authNone authMode = iota
	authAccess
	authRefresh
)

type call struct {
	method      string
	nsid        string
	query       [][2]string
	body        []byte
	contentType string
	auth        authMode
	retry       bool
}

func (c *Client) getJSON(ctx context.Context, nsid string, query [][2]string, out any) error {
	return c.do(ctx, call{method: fasthttp.MethodGet, nsid: nsid, query: query, auth: authAccess, retry: true}, out)
}

func (c *Client) postJSON(ctx context.Context, nsid string, in any, auth authMode, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = b
	}
	return c.do(ctx, call{method: fasthttp.MethodPost, nsid: nsid, body: body, contentType: "application/json", auth: auth}, out)
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(cl.method)
	req.SetRequestURI(c.baseURL + "/xrpc/" + cl.nsid)
	args := req.URI().QueryArgs()
	for _, kv := range cl.query {
		args.Add(kv[0], kv[1])
	}
	if cl.contentType != "" {
		req.Header.SetContentType(cl.contentType)
	}
	if cl.body != nil {
		req.SetBody(cl.body)
	}
	if cl.auth != authNone {
		s := c.Session()
		if s == nil {
			return ErrNoSession
		}
		token := s.AccessJwt
		if cl.auth == authRefresh {
			token = s.RefreshJwt
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	attempts := 1
	if cl.retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("xrpc %s: request failed: %w", cl.nsid, err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Method: cl.nsid, Status: status}
			_ = json.Unmarshal(resp.Body(), apiErr)
			if apiErr.Message == "" && apiErr.Code == "" {
				apiErr.Message = truncate(string(resp.Body()), 512)
			}
			if !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
		} else {
			if out != nil {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("xrpc %s: decode response: %w", cl.nsid, err)
				}
			}
			return nil
		}

		if attempt == attempts {
			break
		}
		c.logger.Debug("xrpc_retry", zap.String("nsid", cl.nsid), zap.Int("attempt", attempt), zap.Error(lastErr))
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func itoa(n int) string { return strconv.Itoa(n) }
