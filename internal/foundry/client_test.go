// ABOUTME: Tests for the agent service client against a scripted fake service
// ABOUTME: Covers thread creation, error classification, and credential propagation

package foundry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epwater/foundry-relay/internal/config"
	"github.com/epwater/foundry-relay/internal/credential"
)

// staticCreds always yields the same api-key credential.
type staticCreds struct{}

func (staticCreds) Acquire(context.Context) (credential.Credential, error) {
	return credential.Credential{Header: "api-key", Value: "test-key"}, nil
}

func (staticCreds) Name() string { return "static" }

// failingCreds never yields credentials.
type failingCreds struct{}

func (failingCreds) Acquire(context.Context) (credential.Credential, error) {
	return credential.Credential{}, credential.ErrAuthUnavailable
}

func (failingCreds) Name() string { return "failing" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		Agent: config.AgentConfig{
			Endpoint: endpoint,
			ID:       "asst_test",
		},
	}
}

// fakeAgentService is a scripted stand-in for the remote agent service.
// Run statuses are served in order; the last one repeats.
type fakeAgentService struct {
	mu sync.Mutex

	threadStatus int
	threadBody   string

	runStatuses []string
	statusIdx   int

	messages string

	messageCalls int
	runCalls     int
	pollCalls    int
	listCalls    int
}

func (f *fakeAgentService) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.URL.Query().Get("api-version") != "v1" {
			t.Errorf("missing api-version parameter on %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "test-key" {
			t.Errorf("missing credential header on %s", r.URL.Path)
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/threads":
			status := f.threadStatus
			if status == 0 {
				status = http.StatusCreated
			}
			body := f.threadBody
			if body == "" {
				body = `{"id": "thread_123"}`
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/messages"):
			f.messageCalls++
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": "msg_1"}`))

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/runs"):
			f.runCalls++
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": "run_1", "status": "queued"}`))

		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/runs/"):
			f.pollCalls++
			status := f.runStatuses[f.statusIdx]
			if f.statusIdx < len(f.runStatuses)-1 {
				f.statusIdx++
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": status})

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/messages"):
			f.listCalls++
			_, _ = w.Write([]byte(f.messages))

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T, f *fakeAgentService, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	base := []Option{WithPollInterval(0), WithMaxPolls(45)}
	return New(testConfig(srv.URL), staticCreds{}, testLogger(), append(base, opts...)...)
}

func TestCreateThread(t *testing.T) {
	fake := &fakeAgentService{}
	client := newTestClient(t, fake)

	id, err := client.CreateThread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_123", id)
}

func TestCreateThread_RemoteError(t *testing.T) {
	fake := &fakeAgentService{
		threadStatus: http.StatusForbidden,
		threadBody:   `{"error": {"code": "PermissionDenied", "message": "no access to project"}}`,
	}
	client := newTestClient(t, fake)

	_, err := client.CreateThread(context.Background())
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusForbidden, remoteErr.Status)
	assert.Equal(t, "PermissionDenied", remoteErr.Code)
	assert.Equal(t, "no access to project", remoteErr.Message)
}

func TestCreateThread_RawErrorBody(t *testing.T) {
	// Non-JSON error bodies become the message verbatim
	fake := &fakeAgentService{
		threadStatus: http.StatusBadGateway,
		threadBody:   "upstream exploded",
	}
	client := newTestClient(t, fake)

	_, err := client.CreateThread(context.Background())
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "upstream exploded", remoteErr.Message)
	assert.Empty(t, remoteErr.Code)
}

func TestCreateThread_MissingID(t *testing.T) {
	fake := &fakeAgentService{threadBody: `{"object": "thread"}`}
	client := newTestClient(t, fake)

	_, err := client.CreateThread(context.Background())
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestCreateThread_AuthUnavailable(t *testing.T) {
	fake := &fakeAgentService{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client := New(testConfig(srv.URL), failingCreds{}, testLogger())

	_, err := client.CreateThread(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, credential.ErrAuthUnavailable)
}

func TestCreateThread_TransportError(t *testing.T) {
	// Point at a closed server so the dial fails
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := New(testConfig(srv.URL), staticCreds{}, testLogger())

	_, err := client.CreateThread(context.Background())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.False(t, errors.As(err, new(*RemoteError)))
}
