// Package api talks to the todos REST service.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Makepad-fr/hosttodo/internal/model"
)

const (
	DefaultEndpoint = "http://localhost:3000"
	DefaultTimeout  = 10 * time.Second

	todosPath = "/todos"
	// error bodies are kept for messages only
	maxErrorBody = 4 << 10
)

// StatusError is returned when the server answers with a non-2xx code.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client is a thin wrapper over net/http for the three todo endpoints.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithLogger(l *logrus.Logger) Option { return func(c *Client) { c.logger = l } }

// WithTimeout sets the per-request timeout. A client passed through
// WithHTTPClient is copied rather than changed.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New returns a client for endpoint, e.g. "http://localhost:3000".
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q: want an absolute http(s) URL", endpoint)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// Endpoint returns the base URL requests are sent to.
func (c *Client) Endpoint() string { return c.base.String() }

// List fetches every todo.
func (c *Client) List(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, todosPath, nil, &todos); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Create posts a new todo. The returned Todo is whatever the server echoed
// back, which may be empty.
func (c *Client) Create(ctx context.Context, nt model.NewTodo) (model.Todo, error) {
	var created model.Todo
	if err := c.do(ctx, http.MethodPost, todosPath, nt, &created); err != nil {
		return model.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return created, nil
}

// Delete removes the todo with id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete todo: empty id")
	}
	if err := c.do(ctx, http.MethodDelete, todosPath+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.WithFields(logrus.Fields{
		"component":  "api",
		"request_id": reqID,
		"method":     method,
		"path":       path,
	})
	log.Debug("request started")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("request failed")
		return err
	}
	defer resp.Body.Close()

	log = log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn("request rejected")
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	log.Info("request completed")

	if out == nil {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if method != http.MethodGet && !looksLikeObject(b) {
		// mutations may answer with plain text or nothing
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func looksLikeObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
