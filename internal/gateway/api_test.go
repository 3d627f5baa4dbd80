// ABOUTME: Tests for the chat relay HTTP handlers
// ABOUTME: Verifies validation, error mapping, session lifecycle, and redaction

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epwater/foundry-relay/internal/config"
	"github.com/epwater/foundry-relay/internal/credential"
	"github.com/epwater/foundry-relay/internal/foundry"
	"github.com/epwater/foundry-relay/internal/session"
)

// fakeClient is a scripted agent client.
type fakeClient struct {
	createCalls   int
	createErr     error
	exchangeCalls int
	exchangeErr   error
	reply         string
}

func (f *fakeClient) CreateThread(context.Context) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "thread_test", nil
}

func (f *fakeClient) Exchange(_ context.Context, threadID, userText string) (string, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return f.reply, nil
}

func (f *fakeClient) RawCreateThread(context.Context) (int, []byte, error) {
	return http.StatusCreated, []byte(`{"id": "thread_raw"}`), nil
}

func newTestGateway(t *testing.T, client agentClient) *Gateway {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{HTTPAddr: ":0"},
		Agent: config.AgentConfig{
			Endpoint: "https://example.services.ai.azure.com/api/projects/demo",
			ID:       "asst_test",
			APIKey:   "sk-secret-value-12345",
		},
	}
	return &Gateway{
		config:   cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		client:   client,
		session:  session.New(),
		recorder: nopChatRecorder{},
	}
}

func postChat(t *testing.T, gw *Gateway, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.handleChat(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	client := &fakeClient{reply: "Here is the vacation policy."}
	gw := newTestGateway(t, client)

	rec := postChat(t, gw, `{"message": "what is the vacation policy?"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Here is the vacation policy.", resp.Response)
	assert.Equal(t, "thread_test", resp.ThreadID)
	assert.Equal(t, 1, client.createCalls)
	assert.Equal(t, 1, client.exchangeCalls)
}

func TestHandleChat_ReusesThread(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	gw := newTestGateway(t, client)

	postChat(t, gw, `{"message": "first"}`)
	postChat(t, gw, `{"message": "second"}`)

	assert.Equal(t, 1, client.createCalls, "thread should be created once")
	assert.Equal(t, 2, client.exchangeCalls)
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty string", `{"message": ""}`},
		{"whitespace only", `{"message": "   \t\n  "}`},
		{"missing field", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			gw := newTestGateway(t, client)

			rec := postChat(t, gw, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)

			var errResp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
			assert.Equal(t, "No message provided", errResp["error"])

			// Validation failures must make no remote calls
			assert.Equal(t, 0, client.createCalls)
			assert.Equal(t, 0, client.exchangeCalls)
		})
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	gw := newTestGateway(t, &fakeClient{})

	rec := postChat(t, gw, "not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	gw := newTestGateway(t, &fakeClient{})

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	gw.handleChat(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleChat_AuthUnavailable(t *testing.T) {
	client := &fakeClient{createErr: credential.ErrAuthUnavailable}
	gw := newTestGateway(t, client)

	rec := postChat(t, gw, `{"message": "hi"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "Failed to create conversation thread", errResp["error"])
}

func TestHandleChat_RemoteError(t *testing.T) {
	client := &fakeClient{
		reply:       "",
		exchangeErr: &foundry.RemoteError{Op: "start run", Status: 429, Code: "rate_limit_exceeded"},
	}
	gw := newTestGateway(t, client)

	rec := postChat(t, gw, `{"message": "hi"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	// Remote detail stays in the logs, not the client response
	assert.Equal(t, "Failed to get response from agent", errResp["error"])
}

func TestHandleChat_TransportError(t *testing.T) {
	client := &fakeClient{
		exchangeErr: &foundry.TransportError{Op: "post message", Err: errors.New("connection refused")},
	}
	gw := newTestGateway(t, client)

	rec := postChat(t, gw, `{"message": "hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleNewConversation(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	gw := newTestGateway(t, client)

	postChat(t, gw, `{"message": "hello"}`)
	require.Equal(t, 1, client.createCalls)

	req := httptest.NewRequest(http.MethodPost, "/new-conversation", nil)
	rec := httptest.NewRecorder()
	gw.handleNewConversation(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "New conversation started", resp["message"])

	// Next chat must trigger a fresh thread creation
	postChat(t, gw, `{"message": "hello again"}`)
	assert.Equal(t, 2, client.createCalls)
}

func TestHandleHealth_NeverLeaksCredential(t *testing.T) {
	gw := newTestGateway(t, &fakeClient{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	gw.handleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.NotContains(t, body, "sk-secret-value-12345")

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "v1", resp.APIVersion)
	assert.True(t, resp.AgentConfigured)
	assert.True(t, resp.APIKeyConfigured)
	assert.Equal(t, "****2345 (21 chars)", resp.APIKeyMasked)
	assert.False(t, resp.ConversationActive)
}

func TestHandleHealth_ActiveConversation(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	gw := newTestGateway(t, client)

	postChat(t, gw, `{"message": "hi"}`)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	gw.handleHealth(rec, req)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.ConversationActive)
}

func TestRoutes_Index(t *testing.T) {
	gw := newTestGateway(t, &fakeClient{})
	handler := gw.routes()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "HR Policy Assistant")
}

func TestRoutes_UnknownPath(t *testing.T) {
	gw := newTestGateway(t, &fakeClient{})
	handler := gw.routes()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_StaticPages(t *testing.T) {
	gw := newTestGateway(t, &fakeClient{})
	handler := gw.routes()

	for _, path := range []string{"/privacy", "/terms"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "<h1>") {
			t.Errorf("%s: expected rendered heading in body", path)
		}
	}
}

func TestChatRequestBodyRoundTrip(t *testing.T) {
	// The frontend posts exactly this shape
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"message": "hi"}`), &req))
	assert.Equal(t, "hi", req.Message)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(ChatResponse{Response: "r", ThreadID: "t"}))
	assert.JSONEq(t, `{"response": "r", "thread_id": "t"}`, buf.String())
}
