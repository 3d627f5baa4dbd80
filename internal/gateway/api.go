// ABOUTME: HTTP API handlers for the chat relay endpoints
// ABOUTME: Maps client errors to 4xx and agent-service failures to 5xx JSON responses

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/epwater/foundry-relay/internal/assets"
	"github.com/epwater/foundry-relay/internal/config"
	"github.com/epwater/foundry-relay/internal/credential"
	"github.com/epwater/foundry-relay/internal/foundry"
)

// ChatRequest is the JSON request body for POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the JSON response for a successful POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
}

// handleIndex serves the embedded chat landing page at exactly "/".
func (g *Gateway) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := assets.IndexHTML()
	if err != nil {
		g.logger.Error("failed to load landing page", "error", err)
		http.Error(w, "landing page unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handlePage serves an embedded markdown page rendered to HTML.
func (g *Gateway) handlePage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := assets.Page(name, title)
		if err != nil {
			g.logger.Error("failed to render page", "page", name, "error", err)
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
}

// handleChat handles POST /chat requests.
//
// Responsibilities:
//  1. Parse and validate the JSON body - a trimmed-empty message is a 400
//     and makes no remote calls
//  2. Ensure a conversation exists, creating one lazily via the client
//  3. Run the exchange sequence against the agent service
//  4. Map failures: missing credentials and remote-service errors are
//     gateway-class (502), transport and unexpected errors are 500
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.recorder.ChatRequest("validation_error")
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		g.recorder.ChatRequest("validation_error")
		g.sendJSONError(w, http.StatusBadRequest, "No message provided")
		return
	}

	threadID, err := g.session.Ensure(r.Context(), g.client)
	if err != nil {
		g.logger.Error("failed to create conversation thread", "error", err)
		g.recorder.ChatRequest(errorOutcome(err))
		g.sendJSONError(w, errorStatus(err), "Failed to create conversation thread")
		return
	}

	reply, err := g.client.Exchange(r.Context(), threadID, req.Message)
	if err != nil {
		g.logger.Error("exchange failed", "thread_id", threadID, "error", err)
		g.recorder.ChatRequest(errorOutcome(err))
		g.sendJSONError(w, errorStatus(err), "Failed to get response from agent")
		return
	}

	g.recorder.ChatRequest("ok")
	g.writeJSON(w, http.StatusOK, ChatResponse{Response: reply, ThreadID: threadID})
}

// errorStatus maps a client error to the HTTP status returned to the caller.
// Credential and remote-service failures are the upstream's fault (502);
// transport failures and anything unexpected are reported as 500.
func errorStatus(err error) int {
	var remoteErr *foundry.RemoteError
	var protoErr *foundry.ProtocolError
	switch {
	case errors.Is(err, credential.ErrAuthUnavailable):
		return http.StatusBadGateway
	case errors.As(err, &remoteErr), errors.As(err, &protoErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorOutcome labels a client error for the chat request counter.
func errorOutcome(err error) string {
	var remoteErr *foundry.RemoteError
	var transportErr *foundry.TransportError
	switch {
	case errors.Is(err, credential.ErrAuthUnavailable):
		return "auth_error"
	case errors.As(err, &remoteErr):
		return "remote_error"
	case errors.As(err, &transportErr):
		return "transport_error"
	default:
		return "error"
	}
}

// handleNewConversation handles POST /new-conversation. Clearing the session
// always succeeds; the remote thread is simply abandoned.
func (g *Gateway) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	g.session.Reset()
	g.logger.Info("conversation reset")
	g.writeJSON(w, http.StatusOK, map[string]string{"message": "New conversation started"})
}

// healthResponse is the JSON response for GET /health. Credential material
// is reported as presence plus a masked indicator, never the raw value.
type healthResponse struct {
	Status             string `json:"status"`
	Endpoint           string `json:"endpoint"`
	APIVersion         string `json:"api_version"`
	AgentConfigured    bool   `json:"agent_configured"`
	APIKeyConfigured   bool   `json:"api_key_configured"`
	APIKeyMasked       string `json:"api_key_masked,omitempty"`
	IdentityConfigured bool   `json:"identity_configured"`
	ConversationActive bool   `json:"conversation_active"`
}

// handleHealth reports process liveness and redacted configuration.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, healthResponse{
		Status:             "healthy",
		Endpoint:           g.config.Agent.Endpoint,
		APIVersion:         config.APIVersion,
		AgentConfigured:    g.config.Agent.ID != "",
		APIKeyConfigured:   g.config.HasAPIKey(),
		APIKeyMasked:       maskSecret(g.config.Agent.APIKey),
		IdentityConfigured: g.config.HasIdentity(),
		ConversationActive: g.session.Current() != "",
	})
}

// writeJSON writes a JSON response body with the given status.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.writeJSON(w, status, map[string]string{"error": message})
}
