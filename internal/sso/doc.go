// Package sso orchestrates the EVE SSO authorization-code-with-PKCE flow
// and the lifecycle of the tokens it produces.
//
// The package layers on top of pkg/oauth (protocol client):
//
//   - Authenticator runs a complete login: fresh PKCE and state per flow, a
//     single-shot local callback listener, state verification, code
//     exchange, and JWT validation.
//   - CallbackServer is the loopback HTTP listener that receives exactly
//     one authorization callback and then releases its port.
//   - Validator and JWKSClient verify provider-issued access tokens against
//     the remote key set, reporting distinct failure kinds.
//   - Refresher refreshes stored tokens concurrently with per-token failure
//     isolation.
//
// Errors are typed so callers can branch on them with errors.As: CSRF state
// mismatch, provider callback errors, callback timeout, token validation
// failures, and configuration problems all have their own types.
package sso
