package sso

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the identity extracted from a validated access token.
type TokenClaims struct {
	// CharacterID is the numeric character identifier from the sub claim.
	CharacterID int64
	// CharacterName is the name claim.
	CharacterName string
	// Owner is the owner hash; it changes when the character moves to a
	// different account.
	Owner string
	// Scopes are the granted scopes from the scp claim.
	Scopes []string
	// ExpiresAt is the exp claim.
	ExpiresAt time.Time
	// Subject is the raw sub claim (CHARACTER:EVE:<id>).
	Subject string
}

// ValidatorConfig describes what a token must satisfy to be accepted.
type ValidatorConfig struct {
	// JWKSURL is where the provider publishes its signing keys.
	JWKSURL string
	// Audiences is the accepted-audience allow-list.
	Audiences []string
	// Issuers is the accepted-issuer allow-list. EVE SSO has historically
	// used both the bare host and the https URL.
	Issuers []string
}

// Validator verifies provider-issued JWT access tokens: signature against
// the remote key set, expiry, audience, and issuer. Failures carry a
// *TokenInvalidError with a kind identifying exactly what was wrong.
type Validator struct {
	jwks   *JWKSClient
	config ValidatorConfig
	parser *jwt.Parser
}

// NewValidator creates a validator sharing the given key set client.
func NewValidator(jwksClient *JWKSClient, config ValidatorConfig) *Validator {
	return &Validator{
		jwks:   jwksClient,
		config: config,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Validate verifies the token and returns its identity claims.
func (v *Validator) Validate(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}

	_, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, &TokenInvalidError{
				Kind:   TokenKeyNotFound,
				Reason: errors.New("token header missing kid"),
			}
		}

		return v.jwks.Key(ctx, v.config.JWKSURL, kid)
	})
	if err != nil {
		return nil, classifyJWTError(err)
	}

	if err := v.checkIssuer(claims); err != nil {
		return nil, err
	}
	if err := v.checkAudience(claims); err != nil {
		return nil, err
	}

	return extractClaims(claims)
}

// classifyJWTError maps parser failures onto token-invalid kinds. A key
// resolution failure keeps its original kind.
func classifyJWTError(err error) error {
	var invalidErr *TokenInvalidError
	if errors.As(err, &invalidErr) {
		return invalidErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenInvalidError{Kind: TokenExpired, Reason: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &TokenInvalidError{Kind: TokenSignatureInvalid, Reason: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &TokenInvalidError{Kind: TokenMalformed, Reason: err}
	default:
		return &TokenInvalidError{Kind: TokenSignatureInvalid, Reason: err}
	}
}

func (v *Validator) checkIssuer(claims jwt.MapClaims) error {
	issuer, err := claims.GetIssuer()
	if err != nil || issuer == "" {
		return &TokenInvalidError{Kind: TokenIssuerMismatch, Reason: errors.New("token has no issuer claim")}
	}

	for _, accepted := range v.config.Issuers {
		if issuer == accepted {
			return nil
		}
	}

	return &TokenInvalidError{
		Kind:   TokenIssuerMismatch,
		Reason: fmt.Errorf("issuer %q not in accepted list", issuer),
	}
}

func (v *Validator) checkAudience(claims jwt.MapClaims) error {
	audience, err := claims.GetAudience()
	if err != nil || len(audience) == 0 {
		return &TokenInvalidError{Kind: TokenAudienceMismatch, Reason: errors.New("token has no audience claim")}
	}

	for _, aud := range audience {
		for _, accepted := range v.config.Audiences {
			if aud == accepted {
				return nil
			}
		}
	}

	return &TokenInvalidError{
		Kind:   TokenAudienceMismatch,
		Reason: fmt.Errorf("audience %v matched no accepted audience", []string(audience)),
	}
}

// extractClaims pulls the identity fields out of the validated claims.
func extractClaims(claims jwt.MapClaims) (*TokenClaims, error) {
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, &TokenInvalidError{Kind: TokenMalformed, Reason: errors.New("token has no subject claim")}
	}

	characterID, err := characterIDFromSubject(subject)
	if err != nil {
		return nil, &TokenInvalidError{Kind: TokenMalformed, Reason: err}
	}

	result := &TokenClaims{
		CharacterID: characterID,
		Subject:     subject,
	}

	if name, ok := claims["name"].(string); ok {
		result.CharacterName = name
	}
	if owner, ok := claims["owner"].(string); ok {
		result.Owner = owner
	}
	result.Scopes = scopesFromClaim(claims["scp"])

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		result.ExpiresAt = exp.Time.UTC()
	}

	return result, nil
}

// characterIDFromSubject parses the numeric id out of a CHARACTER:EVE:<id>
// subject.
func characterIDFromSubject(subject string) (int64, error) {
	parts := strings.Split(subject, ":")
	id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject %q has no numeric character id", subject)
	}
	return id, nil
}

// scopesFromClaim normalizes the scp claim, which is a bare string for a
// single scope and an array for several.
func scopesFromClaim(claim interface{}) []string {
	switch v := claim.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []interface{}:
		scopes := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	default:
		return nil
	}
}
