// ABOUTME: OAuth2 client-credentials token provider for the identity fallback
// ABOUTME: Caches the bearer token until shortly before its expiry

package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenScope is the resource scope the agent service accepts bearer tokens for.
const tokenScope = "https://ai.azure.com/.default"

// defaultAuthorityHost is the identity token issuer base URL.
const defaultAuthorityHost = "https://login.microsoftonline.com"

// expirySlack is subtracted from a token's lifetime so a token is never
// used within two minutes of expiring mid-call.
const expirySlack = 2 * time.Minute

// ClientCredentials acquires bearer tokens via the OAuth2 client-credentials
// grant. Tokens are cached and reused until close to expiry, so acquiring on
// every outbound call is cheap.
type ClientCredentials struct {
	tenantID     string
	clientID     string
	clientSecret string
	authority    string
	httpClient   *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// ClientCredentialsOption customizes a ClientCredentials provider.
type ClientCredentialsOption func(*ClientCredentials)

// WithAuthorityHost overrides the token issuer base URL. Used by tests.
func WithAuthorityHost(host string) ClientCredentialsOption {
	return func(c *ClientCredentials) { c.authority = strings.TrimRight(host, "/") }
}

// WithHTTPClient overrides the HTTP client used for token requests.
func WithHTTPClient(hc *http.Client) ClientCredentialsOption {
	return func(c *ClientCredentials) { c.httpClient = hc }
}

// NewClientCredentials returns a token provider for the given identity inputs.
func NewClientCredentials(tenantID, clientID, clientSecret string, opts ...ClientCredentialsOption) *ClientCredentials {
	c := &ClientCredentials{
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		authority:    defaultAuthorityHost,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire implements Provider. It returns the cached token when still fresh,
// otherwise requests a new one from the identity endpoint.
func (c *ClientCredentials) Acquire(ctx context.Context) (Credential, error) {
	if c.tenantID == "" || c.clientID == "" || c.clientSecret == "" {
		return Credential{}, ErrAuthUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return Credential{Header: "Authorization", Value: "Bearer " + c.token}, nil
	}

	token, expiresAt, err := c.requestToken(ctx)
	if err != nil {
		return Credential{}, err
	}

	c.token = token
	c.expiresAt = expiresAt
	return Credential{Header: "Authorization", Value: "Bearer " + token}, nil
}

// Name implements Provider.
func (c *ClientCredentials) Name() string { return "client_credentials" }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *ClientCredentials) requestToken(ctx context.Context) (string, time.Time, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {tokenScope},
	}

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.authority, c.tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned no access_token")
	}

	return tr.AccessToken, tokenExpiry(tr), nil
}

// tokenExpiry determines when a token should stop being reused. The JWT exp
// claim is authoritative when the token parses as a JWT; otherwise fall back
// to the expires_in hint, and failing that a conservative fixed lifetime.
func tokenExpiry(tr tokenResponse) time.Time {
	if claims := unverifiedClaims(tr.AccessToken); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.Add(-expirySlack)
		}
	}
	if tr.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - expirySlack)
	}
	return time.Now().Add(5 * time.Minute)
}

// unverifiedClaims extracts claims without signature verification. The relay
// is the token's client, not its audience, so verification is not its job;
// only the expiry matters here.
func unverifiedClaims(token string) jwt.MapClaims {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
