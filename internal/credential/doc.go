// Package credential acquires authorization material for calls to the
// remote agent service.
//
// # Overview
//
// A Credential is one HTTP header: either "api-key: <key>" for a statically
// configured key, or "Authorization: Bearer <token>" for an identity-issued
// token. Providers implement Acquire and may cache internally; callers are
// expected to call Acquire on every outbound request.
//
// # Provider Chain
//
// Mechanisms are modeled as an ordered chain, first success wins:
//
//	chain := credential.NewChain(
//	    credential.NewAPIKey(cfg.Agent.APIKey),
//	    credential.NewClientCredentials(tenant, client, secret),
//	)
//	cred, err := chain.Acquire(ctx)
//
// When every provider fails, the chain's error wraps ErrAuthUnavailable and
// lists each provider's reason, which the front end maps to a gateway-class
// HTTP failure.
//
// # Token Caching
//
// ClientCredentials caches its bearer token and re-acquires only when the
// token is within two minutes of expiry. Expiry comes from the token's JWT
// exp claim when present, else the token endpoint's expires_in hint.
package credential
