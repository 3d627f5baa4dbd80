// ABOUTME: Operator troubleshooting routes under /diag
// ABOUTME: Redacted config dump, endpoint DNS check, and a raw create-thread probe

package gateway

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
)

// maskSecret renders a secret as a presence indicator: length plus the last
// four characters. Short secrets are fully masked.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return fmt.Sprintf("**** (%d chars)", len(s))
	}
	return fmt.Sprintf("****%s (%d chars)", s[len(s)-4:], len(s))
}

// diagConfigResponse is the redacted effective configuration.
type diagConfigResponse struct {
	Endpoint           string `json:"endpoint"`
	AgentID            string `json:"agent_id"`
	APIKeyMasked       string `json:"api_key_masked"`
	TenantID           string `json:"tenant_id"`
	ClientID           string `json:"client_id"`
	ClientSecretMasked string `json:"client_secret_masked"`
	HTTPAddr           string `json:"http_addr"`
	MetricsEnabled     bool   `json:"metrics_enabled"`
	Debug              bool   `json:"debug"`
}

// handleDiagConfig handles GET /diag/config.
func (g *Gateway) handleDiagConfig(w http.ResponseWriter, r *http.Request) {
	cfg := g.config
	g.writeJSON(w, http.StatusOK, diagConfigResponse{
		Endpoint:           cfg.Agent.Endpoint,
		AgentID:            cfg.Agent.ID,
		APIKeyMasked:       maskSecret(cfg.Agent.APIKey),
		TenantID:           cfg.Identity.TenantID,
		ClientID:           cfg.Identity.ClientID,
		ClientSecretMasked: maskSecret(cfg.Identity.ClientSecret),
		HTTPAddr:           cfg.Server.HTTPAddr,
		MetricsEnabled:     cfg.Metrics.Enabled,
		Debug:              cfg.Debug,
	})
}

// handleDiagDNS handles GET /diag/dns. It resolves the configured endpoint
// host so operators can tell DNS problems apart from auth problems.
func (g *Gateway) handleDiagDNS(w http.ResponseWriter, r *http.Request) {
	host, err := g.config.EndpointHost()
	if err != nil {
		g.sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	addrs, err := net.DefaultResolver.LookupHost(r.Context(), host)
	if err != nil {
		g.writeJSON(w, http.StatusBadGateway, map[string]any{
			"host":  host,
			"error": err.Error(),
		})
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"host":      host,
		"addresses": addrs,
	})
}

// handleDiagThread handles POST /diag/thread: a raw create-thread call whose
// status and body are returned unfiltered (credentials excepted, which never
// appear in responses). Not for end users.
func (g *Gateway) handleDiagThread(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status, body, err := g.client.RawCreateThread(r.Context())
	if err != nil {
		g.writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	// Pass the remote body through as-is when it parses as JSON, else as text
	var parsed any
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil {
		parsed = string(body)
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"remote_status": status,
		"remote_body":   parsed,
	})
}
