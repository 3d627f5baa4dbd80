// ABOUTME: Static API key credential provider
// ABOUTME: Wraps a configured key as an api-key header; unavailable when unset

package credential

import "context"

// APIKey yields the configured static key as an api-key header. It is the
// preferred mechanism when a key is configured.
type APIKey struct {
	key string
}

// NewAPIKey returns an APIKey provider. An empty key is allowed; Acquire
// then reports unavailability so a chain can fall through.
func NewAPIKey(key string) *APIKey {
	return &APIKey{key: key}
}

// Acquire implements Provider.
func (a *APIKey) Acquire(_ context.Context) (Credential, error) {
	if a.key == "" {
		return Credential{}, ErrAuthUnavailable
	}
	return Credential{Header: "api-key", Value: a.key}, nil
}

// Name implements Provider.
func (a *APIKey) Name() string { return "api_key" }
