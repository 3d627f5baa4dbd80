// Package gateway is the HTTP front end of foundry-relay.
//
// # Overview
//
// The Gateway struct wires the pieces together: configuration, the
// credential chain, the agent service client, and the single-slot
// conversation session. One http.Server carries every route.
//
// # Routes
//
//   - GET  /                 - embedded chat landing page
//   - GET  /privacy          - privacy policy (markdown rendered to HTML)
//   - GET  /terms            - terms of use (markdown rendered to HTML)
//   - POST /chat             - relay one message, return the agent's reply
//   - POST /new-conversation - drop the current conversation handle
//   - GET  /health           - liveness plus redacted configuration
//   - GET  /diag/config      - redacted effective configuration
//   - GET  /diag/dns         - DNS check of the endpoint host
//   - POST /diag/thread      - raw create-thread probe
//   - GET  /metrics          - Prometheus scrape endpoint (when enabled)
//
// # Chat Flow
//
// POST /chat validates that the message is non-empty after trimming (400
// otherwise, with no remote calls), ensures a conversation exists (created
// lazily on first use), and runs the exchange sequence. The response is
// {response, thread_id} on success or {error} on failure. Missing
// credentials and remote-service failures map to 502; transport failures
// and anything unexpected map to 500.
//
// Every request handled concurrently shares the one session slot; see the
// session package for why that is deliberate.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx)   // blocks until ctx cancels, then graceful shutdown
package gateway
