// Package oauth implements the protocol side of an OAuth 2.1 public client
// with PKCE.
//
// # Core Components
//
//   - Token: token response representation with expiry checking
//   - Metadata: authorization server metadata (RFC 8414)
//   - PKCE: Proof Key for Code Exchange generation (RFC 7636)
//   - Client: metadata discovery, authorization URL construction, code
//     exchange, and refresh
//
// # Error Semantics
//
// Token and metadata operations distinguish two failure classes: the
// provider answered with a non-success status (*ProviderError, carrying the
// parsed OAuth error document when present) and the provider was never
// reached (*NetworkError, wrapping the transport error). The Client never
// retries; retry policy belongs to callers.
//
// # Usage
//
//	client := oauth.NewClient(oauth.WithUserAgent(ua))
//	metadata, err := client.DiscoverMetadata(ctx, issuer)
//	token, err := client.ExchangeCode(ctx, metadata.TokenEndpoint, oauth.ExchangeRequest{
//		Code:         code,
//		RedirectURI:  redirectURI,
//		ClientID:     clientID,
//		CodeVerifier: pkce.CodeVerifier,
//	})
package oauth
