package sso

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"esiauth/pkg/oauth"
)

// DefaultJWKSCacheTTL is how long a fetched key set stays fresh.
const DefaultJWKSCacheTTL = 1 * time.Hour

// jwk is a single key from a JSON Web Key Set. Only RSA signing keys are
// relevant here; EVE SSO publishes RS256 keys.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// jwks is a JSON Web Key Set document.
type jwks struct {
	Keys []jwk `json:"keys"`
}

// jwksCacheEntry holds parsed keys by kid with the fetch timestamp.
type jwksCacheEntry struct {
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// JWKSClient fetches and caches JSON Web Key Sets. A single client is meant
// to be shared across all validations so repeated logins and refreshes reuse
// the cached keys. Safe for concurrent use.
type JWKSClient struct {
	httpClient *http.Client
	userAgent  string
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[string]*jwksCacheEntry

	group singleflight.Group
}

// JWKSOption configures the JWKS client.
type JWKSOption func(*JWKSClient)

// WithJWKSHTTPClient sets a custom HTTP client.
func WithJWKSHTTPClient(httpClient *http.Client) JWKSOption {
	return func(c *JWKSClient) {
		c.httpClient = httpClient
	}
}

// WithJWKSUserAgent sets the User-Agent header for key set fetches.
func WithJWKSUserAgent(userAgent string) JWKSOption {
	return func(c *JWKSClient) {
		c.userAgent = userAgent
	}
}

// WithJWKSCacheTTL sets the key set cache TTL.
func WithJWKSCacheTTL(ttl time.Duration) JWKSOption {
	return func(c *JWKSClient) {
		c.ttl = ttl
	}
}

// NewJWKSClient creates a new key set client.
func NewJWKSClient(opts ...JWKSOption) *JWKSClient {
	c := &JWKSClient{
		httpClient: &http.Client{Timeout: oauth.DefaultHTTPTimeout},
		ttl:        DefaultJWKSCacheTTL,
		cache:      make(map[string]*jwksCacheEntry),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Key resolves the RSA public key with the given kid from the key set at
// jwksURL. A cache miss on the kid forces one refetch before giving up, so
// provider key rotation is picked up without waiting for the TTL.
func (c *JWKSClient) Key(ctx context.Context, jwksURL, kid string) (*rsa.PublicKey, error) {
	entry, err := c.keySet(ctx, jwksURL, false)
	if err != nil {
		return nil, err
	}
	if key, ok := entry.keys[kid]; ok {
		return key, nil
	}

	// Unknown kid: the provider may have rotated keys since the last fetch.
	entry, err = c.keySet(ctx, jwksURL, true)
	if err != nil {
		return nil, err
	}
	if key, ok := entry.keys[kid]; ok {
		return key, nil
	}

	return nil, &TokenInvalidError{
		Kind:   TokenKeyNotFound,
		Reason: fmt.Errorf("no key %q in key set %s", kid, jwksURL),
	}
}

// keySet returns the cached key set for jwksURL, fetching when stale or when
// force is set. Concurrent fetches for the same URL are collapsed.
func (c *JWKSClient) keySet(ctx context.Context, jwksURL string, force bool) (*jwksCacheEntry, error) {
	if !force {
		c.mu.RLock()
		if entry, ok := c.cache[jwksURL]; ok && time.Since(entry.fetchedAt) < c.ttl {
			c.mu.RUnlock()
			return entry, nil
		}
		c.mu.RUnlock()
	}

	result, err, _ := c.group.Do(jwksURL, func() (interface{}, error) {
		if !force {
			c.mu.RLock()
			if entry, ok := c.cache[jwksURL]; ok && time.Since(entry.fetchedAt) < c.ttl {
				c.mu.RUnlock()
				return entry, nil
			}
			c.mu.RUnlock()
		}

		return c.fetch(ctx, jwksURL)
	})
	if err != nil {
		return nil, err
	}

	return result.(*jwksCacheEntry), nil
}

// fetch downloads and parses the key set document.
func (c *JWKSClient) fetch(ctx context.Context, jwksURL string) (*jwksCacheEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &oauth.NetworkError{Op: "jwks", URL: jwksURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &oauth.ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &oauth.NetworkError{Op: "jwks", URL: jwksURL, Err: err}
	}

	var doc jwks
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}

	entry := &jwksCacheEntry{keys: keys, fetchedAt: time.Now()}

	c.mu.Lock()
	c.cache[jwksURL] = entry
	c.mu.Unlock()

	return entry, nil
}

// parseRSAKey builds an rsa.PublicKey from the base64url modulus and
// exponent of a JWK.
func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("non-positive exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// ClearCache drops all cached key sets.
func (c *JWKSClient) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]*jwksCacheEntry)
	c.mu.Unlock()
}
