package token

import (
	"fmt"
	"time"

	"esiauth/pkg/oauth"
)

// MaxRefreshBuffer caps the proactive-refresh buffer. Access tokens live
// roughly twenty minutes, so a larger buffer would trigger a refresh on
// every check.
const MaxRefreshBuffer = 15 * time.Minute

// DefaultRefreshBuffer is the buffer used when callers don't specify one.
const DefaultRefreshBuffer = 5 * time.Minute

// CharacterToken holds the credentials and identity of one authorized
// character. All timestamps are UTC.
type CharacterToken struct {
	// CharacterID is the numeric character identifier from the sub claim.
	CharacterID int64 `json:"character_id"`

	// CharacterName is the character name from the name claim.
	CharacterName string `json:"character_name"`

	// AccessToken is the bearer token presented to the API.
	AccessToken string `json:"access_token"`

	// RefreshToken is used to obtain new access tokens. Providers may
	// rotate it on every refresh; the newest value is authoritative.
	RefreshToken string `json:"refresh_token"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// Scopes are the granted scopes from the scp claim.
	Scopes []string `json:"scopes"`

	// ExpiresAt is when the access token expires.
	ExpiresAt time.Time `json:"expires_at"`

	// ClientID is the application the token was issued to.
	ClientID string `json:"client_id"`

	// CreatedAt is when the character was first authorized.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the token was last refreshed or re-authorized.
	// It increases strictly on every successful refresh.
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds a CharacterToken from a token response and the identity claims
// validated from its access token.
func New(resp *oauth.Token, characterID int64, characterName, clientID string) *CharacterToken {
	now := time.Now().UTC()
	expiresAt := resp.ExpiresAt
	if expiresAt.IsZero() && resp.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	return &CharacterToken{
		CharacterID:   characterID,
		CharacterName: characterName,
		AccessToken:   resp.AccessToken,
		RefreshToken:  resp.RefreshToken,
		TokenType:     resp.TokenType,
		Scopes:        resp.Scopes(),
		ExpiresAt:     expiresAt.UTC(),
		ClientID:      clientID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsExpired reports whether the access token has expired.
func (t *CharacterToken) IsExpired() bool {
	return !time.Now().UTC().Before(t.ExpiresAt)
}

// NeedsRefresh reports whether the access token is expired or will expire
// within the buffer. The buffer is capped at MaxRefreshBuffer. A negative
// buffer disables proactive refresh: only an already-expired token reports
// true.
func (t *CharacterToken) NeedsRefresh(buffer time.Duration) bool {
	if buffer < 0 {
		return t.IsExpired()
	}
	if buffer > MaxRefreshBuffer {
		buffer = MaxRefreshBuffer
	}
	return !time.Now().UTC().Add(buffer).Before(t.ExpiresAt)
}

// MinutesUntilExpiry returns the signed number of minutes until the access
// token expires. Negative once expired.
func (t *CharacterToken) MinutesUntilExpiry() float64 {
	return time.Until(t.ExpiresAt).Minutes()
}

// ApplyRefresh folds a refresh response into the token. The refresh token
// rotates only when the response carries a replacement; scopes are updated
// when the response narrows them. UpdatedAt always moves strictly forward.
func (t *CharacterToken) ApplyRefresh(resp *oauth.Token) {
	now := time.Now().UTC()

	t.AccessToken = resp.AccessToken
	if resp.TokenType != "" {
		t.TokenType = resp.TokenType
	}
	if resp.RefreshToken != "" {
		t.RefreshToken = resp.RefreshToken
	}
	if scopes := resp.Scopes(); len(scopes) > 0 {
		t.Scopes = scopes
	}

	expiresAt := resp.ExpiresAt
	if expiresAt.IsZero() && resp.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	t.ExpiresAt = expiresAt.UTC()

	// Clock granularity could make now equal the previous UpdatedAt.
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}
	t.UpdatedAt = now
}

// Clone returns an independent copy. The scope slice is copied too, so
// mutating the clone never reaches the original.
func (t *CharacterToken) Clone() *CharacterToken {
	c := *t
	c.Scopes = append([]string(nil), t.Scopes...)
	return &c
}

// String returns a loggable description without any token material.
func (t *CharacterToken) String() string {
	return fmt.Sprintf("%s (%d), expires %s", t.CharacterName, t.CharacterID, t.ExpiresAt.Format(time.RFC3339))
}
