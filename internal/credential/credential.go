// ABOUTME: Credential acquisition for calls to the remote agent service
// ABOUTME: Ordered provider chain; static API key preferred, identity token fallback

package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAuthUnavailable indicates that no provider in the chain could produce
// usable credentials. Callers map it to a gateway-class HTTP failure.
var ErrAuthUnavailable = errors.New("no usable credentials available")

// Credential is a single header applied to outbound requests: either an
// api-key header carrying a static key, or a bearer Authorization header.
// It is a capability, not a value to persist.
type Credential struct {
	Header string
	Value  string
}

// Apply sets the credential header on an outbound request.
func (c Credential) Apply(req *http.Request) {
	req.Header.Set(c.Header, c.Value)
}

// Source describes which mechanism produced a credential, for health and
// diagnostics output. Never expose Value there.
func (c Credential) Source() string {
	if c.Header == "api-key" {
		return "api_key"
	}
	return "identity_token"
}

// Provider yields a credential for one outbound call. Implementations may
// cache internally; callers are free to call Acquire on every request.
type Provider interface {
	Acquire(ctx context.Context) (Credential, error)

	// Name identifies the mechanism in diagnostics and chain errors.
	Name() string
}

// Chain tries each provider in order and returns the first success.
// When every provider fails, the returned error wraps ErrAuthUnavailable
// and carries each provider's reason.
type Chain struct {
	providers []Provider
}

// NewChain builds a chain from the given providers, attempted in order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Acquire implements Provider.
func (c *Chain) Acquire(ctx context.Context) (Credential, error) {
	if len(c.providers) == 0 {
		return Credential{}, ErrAuthUnavailable
	}

	var failures []string
	for _, p := range c.providers {
		cred, err := p.Acquire(ctx)
		if err == nil {
			return cred, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
	}

	return Credential{}, fmt.Errorf("%w: %s", ErrAuthUnavailable, strings.Join(failures, "; "))
}

// Name implements Provider.
func (c *Chain) Name() string { return "chain" }
