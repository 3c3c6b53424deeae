// Package mock provides a mock EVE SSO authorization server for tests.
//
// The server signs real RS256 access tokens and publishes the matching JWKS,
// so token validation paths can be exercised end to end without network
// access to the real provider.
package mock

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SSOErrorSimulation switches on simulated provider failures.
type SSOErrorSimulation struct {
	// InvalidGrant rejects every token request with invalid_grant.
	InvalidGrant bool

	// ServerError answers every token request with HTTP 502.
	ServerError bool
}

// SSOServerConfig configures the mock SSO server behavior.
type SSOServerConfig struct {
	// ClientID is the expected OAuth client ID.
	ClientID string

	// CharacterID and CharacterName identify the character tokens are
	// issued for.
	CharacterID   int64
	CharacterName string

	// Audience is the aud claim of issued tokens.
	Audience string

	// TokenLifetime is how long access tokens remain valid.
	TokenLifetime time.Duration

	// Scopes is the scp claim of issued tokens.
	Scopes []string

	// RotateRefreshTokens makes every refresh response carry a new
	// refresh token.
	RotateRefreshTokens bool

	// SimulateErrors can be set to simulate error conditions.
	SimulateErrors *SSOErrorSimulation
}

// SSOServer is a mock SSO authorization server backed by httptest.
type SSOServer struct {
	config SSOServerConfig
	server *httptest.Server

	key *rsa.PrivateKey
	kid string

	mu              sync.Mutex
	tokenRequests   int
	refreshCounter  int
	revokedRefresh  map[string]bool
	lastRefreshSeen string
}

// NewSSOServer creates and starts a mock SSO server.
func NewSSOServer(config SSOServerConfig) *SSOServer {
	if config.TokenLifetime == 0 {
		config.TokenLifetime = 20 * time.Minute
	}
	if config.ClientID == "" {
		config.ClientID = "test-client"
	}
	if config.CharacterID == 0 {
		config.CharacterID = 91316135
	}
	if config.CharacterName == "" {
		config.CharacterName = "Test Pilot"
	}
	if config.Audience == "" {
		config.Audience = "EVE Online"
	}
	if len(config.Scopes) == 0 {
		config.Scopes = []string{"publicData"}
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("mock: failed to generate signing key: %v", err))
	}

	s := &SSOServer{
		config:         config,
		key:            key,
		kid:            "JWT-Signature-Key",
		revokedRefresh: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.handleMetadata)
	mux.HandleFunc("/v2/oauth/token", s.handleToken)
	mux.HandleFunc("/oauth/jwks", s.handleJWKS)

	s.server = httptest.NewServer(mux)
	return s
}

// Close shuts the server down.
func (s *SSOServer) Close() {
	s.server.Close()
}

// URL returns the server base URL, which is also the token issuer.
func (s *SSOServer) URL() string {
	return s.server.URL
}

// TokenEndpoint returns the token endpoint URL.
func (s *SSOServer) TokenEndpoint() string {
	return s.server.URL + "/v2/oauth/token"
}

// AuthorizeEndpoint returns the authorization endpoint URL.
func (s *SSOServer) AuthorizeEndpoint() string {
	return s.server.URL + "/v2/oauth/authorize"
}

// JWKSEndpoint returns the key set URL.
func (s *SSOServer) JWKSEndpoint() string {
	return s.server.URL + "/oauth/jwks"
}

// TokenRequests returns how many token endpoint requests were served.
func (s *SSOServer) TokenRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenRequests
}

// LastRefreshToken returns the refresh token presented on the most recent
// refresh grant.
func (s *SSOServer) LastRefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefreshSeen
}

// RevokeRefreshToken makes future refresh grants with this token fail with
// invalid_grant. Useful for partial-failure batch tests.
func (s *SSOServer) RevokeRefreshToken(refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedRefresh[refreshToken] = true
}

// DefaultClaims returns the claims of a freshly issued access token.
func (s *SSOServer) DefaultClaims() jwt.MapClaims {
	now := time.Now()
	scp := make([]interface{}, len(s.config.Scopes))
	for i, sc := range s.config.Scopes {
		scp[i] = sc
	}
	return jwt.MapClaims{
		"iss":   s.server.URL,
		"sub":   fmt.Sprintf("CHARACTER:EVE:%d", s.config.CharacterID),
		"aud":   s.config.Audience,
		"name":  s.config.CharacterName,
		"owner": "mockownerhash=",
		"scp":   scp,
		"iat":   now.Unix(),
		"exp":   now.Add(s.config.TokenLifetime).Unix(),
	}
}

// SignToken signs the claims with the published key.
func (s *SSOServer) SignToken(claims jwt.MapClaims) string {
	return s.SignTokenWithKid(s.kid, claims)
}

// SignTokenWithKid signs the claims with a chosen kid header. A kid that is
// not in the JWKS lets tests exercise key resolution failures.
func (s *SSOServer) SignTokenWithKid(kid string, claims jwt.MapClaims) string {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = kid
	signed, err := t.SignedString(s.key)
	if err != nil {
		panic(fmt.Sprintf("mock: failed to sign token: %v", err))
	}
	return signed
}

// SignTokenWithKey signs the claims with a foreign key, producing a token
// whose signature will not verify against the published JWKS.
func (s *SSOServer) SignTokenWithKey(key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	signed, err := t.SignedString(key)
	if err != nil {
		panic(fmt.Sprintf("mock: failed to sign token: %v", err))
	}
	return signed
}

func (s *SSOServer) handleMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"issuer":                           s.server.URL,
		"authorization_endpoint":           s.AuthorizeEndpoint(),
		"token_endpoint":                   s.TokenEndpoint(),
		"jwks_uri":                         s.JWKSEndpoint(),
		"response_types_supported":         []string{"code"},
		"grant_types_supported":            []string{"authorization_code", "refresh_token"},
		"code_challenge_methods_supported": []string{"S256"},
	})
}

func (s *SSOServer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	pub := &s.key.PublicKey
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"keys": []map[string]string{
			{
				"kty": "RSA",
				"use": "sig",
				"alg": "RS256",
				"kid": s.kid,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	})
}

func (s *SSOServer) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.tokenRequests++
	s.mu.Unlock()

	if sim := s.config.SimulateErrors; sim != nil {
		if sim.ServerError {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		if sim.InvalidGrant {
			s.writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "Grant rejected by simulation.")
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		s.writeOAuthError(w, http.StatusBadRequest, "invalid_request", "unparsable form body")
		return
	}

	if clientID := r.PostForm.Get("client_id"); clientID != s.config.ClientID {
		s.writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "unknown client")
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") == "" || r.PostForm.Get("code_verifier") == "" {
			s.writeOAuthError(w, http.StatusBadRequest, "invalid_request", "missing code or code_verifier")
			return
		}
	case "refresh_token":
		refresh := r.PostForm.Get("refresh_token")
		s.mu.Lock()
		s.lastRefreshSeen = refresh
		revoked := s.revokedRefresh[refresh]
		s.mu.Unlock()
		if refresh == "" || revoked {
			s.writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "refresh token revoked")
			return
		}
	default:
		s.writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "")
		return
	}

	refreshToken := "refresh-token-0"
	if s.config.RotateRefreshTokens {
		s.mu.Lock()
		s.refreshCounter++
		refreshToken = fmt.Sprintf("refresh-token-%d", s.refreshCounter)
		s.mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  s.SignToken(s.DefaultClaims()),
		"token_type":    "Bearer",
		"expires_in":    int(s.config.TokenLifetime.Seconds()),
		"refresh_token": refreshToken,
	})
}

func (s *SSOServer) writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
