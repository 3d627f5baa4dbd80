// ABOUTME: Gateway orchestrator wiring config, credentials, agent client, and HTTP server
// ABOUTME: Owns route registration, request logging, and server lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/epwater/foundry-relay/internal/config"
	"github.com/epwater/foundry-relay/internal/credential"
	"github.com/epwater/foundry-relay/internal/foundry"
	"github.com/epwater/foundry-relay/internal/metrics"
	"github.com/epwater/foundry-relay/internal/session"
)

// agentClient is the slice of *foundry.Client the gateway needs. Tests
// substitute a scripted fake.
type agentClient interface {
	CreateThread(ctx context.Context) (string, error)
	Exchange(ctx context.Context, threadID, userText string) (string, error)
	RawCreateThread(ctx context.Context) (int, []byte, error)
}

// chatRecorder counts inbound chat requests by outcome.
type chatRecorder interface {
	ChatRequest(outcome string)
}

type nopChatRecorder struct{}

func (nopChatRecorder) ChatRequest(string) {}

// Gateway is the HTTP front end of the relay. It routes incoming requests
// to the session state and agent client and serves the static pages.
type Gateway struct {
	config     *config.Config
	logger     *slog.Logger
	client     agentClient
	creds      credential.Provider
	session    *session.Session
	httpServer *http.Server
	recorder   chatRecorder
	metricsH   http.Handler
}

// New wires up a Gateway from configuration: credential chain, agent
// client, empty session, and the HTTP route table.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	creds := buildCredentialChain(cfg)

	var clientOpts []foundry.Option
	g := &Gateway{
		config:   cfg,
		logger:   logger,
		creds:    creds,
		session:  session.New(),
		recorder: nopChatRecorder{},
	}

	if cfg.Metrics.Enabled {
		rec := metrics.NewRecorder()
		g.recorder = rec
		g.metricsH = rec.Handler()
		clientOpts = append(clientOpts, foundry.WithRecorder(rec))
	}

	g.client = foundry.New(cfg, creds, logger.With("component", "foundry"), clientOpts...)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           g.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// buildCredentialChain assembles the provider order: static key preferred,
// identity token fallback. Providers with missing inputs stay in the chain
// and report unavailability, so the aggregate error names both mechanisms.
func buildCredentialChain(cfg *config.Config) credential.Provider {
	return credential.NewChain(
		credential.NewAPIKey(cfg.Agent.APIKey),
		credential.NewClientCredentials(cfg.Identity.TenantID, cfg.Identity.ClientID, cfg.Identity.ClientSecret),
	)
}

// routes builds the HTTP route table.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", g.handleIndex)
	mux.HandleFunc("/privacy", g.handlePage("privacy", "Privacy Policy - HR Policy Assistant"))
	mux.HandleFunc("/terms", g.handlePage("terms", "Terms of Use - HR Policy Assistant"))
	mux.HandleFunc("/chat", g.handleChat)
	mux.HandleFunc("/new-conversation", g.handleNewConversation)
	mux.HandleFunc("/health", g.handleHealth)

	mux.HandleFunc("/diag/config", g.handleDiagConfig)
	mux.HandleFunc("/diag/dns", g.handleDiagDNS)
	mux.HandleFunc("/diag/thread", g.handleDiagThread)

	if g.metricsH != nil {
		mux.Handle(g.config.Metrics.Path, g.metricsH)
	}

	return g.requestLogger(mux)
}

// requestLogger tags each request with an id and logs method, path, and
// duration at debug level.
func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		next.ServeHTTP(w, r)
		g.logger.Debug("request handled",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails. Shutdown is graceful with a fixed timeout.
func (g *Gateway) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}

	g.logger.Info("http server listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := g.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
	case serverErr = <-errCh:
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server, letting in-flight exchanges finish up to
// the context deadline.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")
	return g.httpServer.Shutdown(ctx)
}
