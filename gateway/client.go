package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/jaganraajan/projects-board/domain"
	"github.com/jaganraajan/projects-board/session"
)

const responseMaxSize = 1 << 20 // 1 MiB

// Client issues task CRUD calls against the tenant service. Every call is a
// single attempt: no retries, no caching, no timeout beyond the transport's
// own defaults. Failures surface as *NetworkError.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger enables per-call metrics logging.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the tenant service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// taskEnvelope is the `{"task": …}` request wrapper the tenant service
// expects on writes.
type taskEnvelope struct {
	Task any `json:"task"`
}

// Create stores a new task for the credential's account.
func (c *Client) Create(ctx context.Context, draft domain.Draft, cred *session.Session) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, "create", http.MethodPost, "/tasks", cred, taskEnvelope{Task: draft}, &task)
	if err != nil {
		return domain.Task{}, err
	}
	task.Normalize()
	task.Origin = domain.OriginRemote
	return task, nil
}

// Update applies a partial update and returns the server's merged task.
func (c *Client) Update(ctx context.Context, id string, patch domain.Patch, cred *session.Session) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, "update", http.MethodPatch, "/tasks/"+id, cred, taskEnvelope{Task: patch}, &task)
	if err != nil {
		return domain.Task{}, err
	}
	task.Normalize()
	task.Origin = domain.OriginRemote
	return task, nil
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id string, cred *session.Session) error {
	return c.do(ctx, "delete", http.MethodDelete, "/tasks/"+id, cred, nil, nil)
}

// List fetches every task visible to the credential's account.
func (c *Client) List(ctx context.Context, cred *session.Session) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, "list", http.MethodGet, "/tasks", cred, nil, &tasks); err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Normalize()
		tasks[i].Origin = domain.OriginRemote
	}
	return tasks, nil
}

// Login exchanges account credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, "login", http.MethodPost, "/login", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Register creates a tenant account.
func (c *Client) Register(ctx context.Context, email, password, companyName string) error {
	body := map[string]string{"email": email, "password": password, "company_name": companyName}
	return c.do(ctx, "register", http.MethodPost, "/register", nil, body, nil)
}

// Me fetches the identity behind the credential.
func (c *Client) Me(ctx context.Context, cred *session.Session) (domain.Account, error) {
	var account domain.Account
	path := "/me"
	if cred != nil && cred.Email != "" {
		path += "?email=" + cred.Email
	}
	if err := c.do(ctx, "me", http.MethodGet, path, cred, nil, &account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, cred *session.Session, body, out any) error {
	metrics, spanCtx := newCallMetrics(ctx, c.logger, op)

	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			metrics.Finish(0, err)
			return &NetworkError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(spanCtx, method, c.baseURL+path, reader)
	if err != nil {
		metrics.Finish(0, err)
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if cred != nil {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
		req.Header.Set(identityHeader, cred.Email)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.Finish(0, err)
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain so the connection can be reused; the body is not part of the
		// error contract.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseMaxSize))
		netErr := &NetworkError{Op: op, StatusCode: resp.StatusCode}
		metrics.Finish(resp.StatusCode, netErr)
		return netErr
	}

	if out != nil {
		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(resp.Body, responseMaxSize))
		if err := dec.Decode(out); err != nil {
			metrics.Finish(resp.StatusCode, err)
			return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: err}
		}
	}
	metrics.Finish(resp.StatusCode, nil)
	return nil
}

// identityHeader carries the account email alongside the bearer token.
const identityHeader = "X-User-Email"
