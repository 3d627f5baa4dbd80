// ABOUTME: HTTP client for the remote agent service (threads, messages, runs)
// ABOUTME: Implements create-thread and the post/run/poll/fetch exchange sequence

package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/epwater/foundry-relay/internal/config"
	"github.com/epwater/foundry-relay/internal/credential"
)

// Reply strings for the two deliberate soft-failure outcomes. Poll
// exhaustion and a reply with no extractable text both degrade to friendly
// text instead of surfacing plumbing to the end user.
const (
	SoftTimeoutReply = "Sorry, I couldn't process your request at the moment."
	MissingTextReply = "I completed the run, but couldn't find a text reply."
)

// Run statuses from the remote contract. Anything not listed here keeps the
// poll loop going (queued, in_progress, ...).
const (
	runCompleted = "completed"
	runFailed    = "failed"
	runCancelled = "cancelled"
	runExpired   = "expired"
)

const (
	defaultCallTimeout  = 30 * time.Second
	defaultPollInterval = 1 * time.Second
	defaultMaxPolls     = 45
)

// Recorder receives client-side observations. The metrics package provides
// the Prometheus implementation; tests and bare deployments use NopRecorder.
type Recorder interface {
	ThreadCreated()
	RunPolled(status string)
	ExchangeFinished(outcome string, elapsed time.Duration)
}

// NopRecorder discards all observations.
type NopRecorder struct{}

func (NopRecorder) ThreadCreated()                         {}
func (NopRecorder) RunPolled(string)                       {}
func (NopRecorder) ExchangeFinished(string, time.Duration) {}

// Client talks to the remote agent service over a single reusable HTTP
// connection pool. All calls are synchronous; the only internal retry is the
// fixed-interval run-status poll inside Exchange.
type Client struct {
	endpoint   string
	agentID    string
	creds      credential.Provider
	httpClient *http.Client
	logger     *slog.Logger
	recorder   Recorder

	pollInterval time.Duration
	maxPolls     int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval overrides the run-status poll interval. Used by tests;
// production keeps the 1s default so the 45-attempt budget stays ~45s.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxPolls overrides the poll attempt budget.
func WithMaxPolls(n int) Option {
	return func(c *Client) { c.maxPolls = n }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a Client for the configured endpoint and agent.
func New(cfg *config.Config, creds credential.Provider, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:     cfg.Agent.Endpoint,
		agentID:      cfg.Agent.ID,
		creds:        creds,
		httpClient:   &http.Client{Timeout: defaultCallTimeout},
		logger:       logger,
		recorder:     NopRecorder{},
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type threadResponse struct {
	ID string `json:"id"`
}

// CreateThread starts a new conversation thread on the remote service and
// returns its opaque identifier.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	const op = "create thread"

	status, body, err := c.do(ctx, op, http.MethodPost, c.url("/threads"), map[string]any{})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", remoteError(op, status, body)
	}

	var tr threadResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.ID == "" {
		return "", &ProtocolError{Op: op, Detail: "response carried no thread id"}
	}

	c.logger.Info("thread created", "thread_id", tr.ID)
	c.recorder.ThreadCreated()
	return tr.ID, nil
}

// RawCreateThread performs a create-thread call and returns the raw status
// and body without interpretation. Diagnostics only.
func (c *Client) RawCreateThread(ctx context.Context) (int, []byte, error) {
	return c.do(ctx, "raw create thread", http.MethodPost, c.url("/threads"), map[string]any{})
}

// url joins a path under the endpoint and appends the api-version parameter.
func (c *Client) url(path string) string {
	return fmt.Sprintf("%s%s?api-version=%s", c.endpoint, path, config.APIVersion)
}

// do performs one outbound call: acquire credentials, send, read the body.
// A nil payload sends no body (GET). Transport failures come back as
// *TransportError; credential failures propagate unwrapped so callers can
// detect credential.ErrAuthUnavailable.
func (c *Client) do(ctx context.Context, op, method, url string, payload any) (int, []byte, error) {
	cred, err := c.creds.Acquire(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	cred.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}

	return resp.StatusCode, body, nil
}
