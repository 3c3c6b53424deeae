package sso

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"esiauth/internal/testing/mock"
)

func newTestValidator(t *testing.T, sso *mock.SSOServer) *Validator {
	t.Helper()
	return NewValidator(NewJWKSClient(), ValidatorConfig{
		JWKSURL:   sso.JWKSEndpoint(),
		Audiences: []string{"EVE Online"},
		Issuers:   []string{sso.URL()},
	})
}

func assertInvalidKind(t *testing.T, err error, kind TokenInvalidKind) {
	t.Helper()
	var invalidErr *TokenInvalidError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected *TokenInvalidError, got: %v", err)
	}
	if invalidErr.Kind != kind {
		t.Fatalf("Kind = %v, want %v (err: %v)", invalidErr.Kind, kind, err)
	}
}

func TestValidator_Validate_Success(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{
		CharacterID:   91316135,
		CharacterName: "Test Pilot",
		Scopes:        []string{"publicData", "esi-skills.read_skills.v1"},
	})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	claims, err := validator.Validate(context.Background(), sso.SignToken(sso.DefaultClaims()))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if claims.CharacterID != 91316135 {
		t.Errorf("CharacterID = %d", claims.CharacterID)
	}
	if claims.CharacterName != "Test Pilot" {
		t.Errorf("CharacterName = %q", claims.CharacterName)
	}
	if len(claims.Scopes) != 2 {
		t.Errorf("Scopes = %v", claims.Scopes)
	}
	if claims.Owner == "" {
		t.Error("Owner should be extracted")
	}
	if claims.ExpiresAt.IsZero() {
		t.Error("ExpiresAt should be extracted")
	}
}

func TestValidator_Validate_ScopeAsString(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	// A single scope arrives as a bare string, not an array.
	c := sso.DefaultClaims()
	c["scp"] = "publicData"

	claims, err := validator.Validate(context.Background(), sso.SignToken(c))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(claims.Scopes) != 1 || claims.Scopes[0] != "publicData" {
		t.Errorf("Scopes = %v, want [publicData]", claims.Scopes)
	}
}

func TestValidator_Validate_Expired(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	c := sso.DefaultClaims()
	c["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := validator.Validate(context.Background(), sso.SignToken(c))
	assertInvalidKind(t, err, TokenExpired)
}

func TestValidator_Validate_AudienceMismatch(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	c := sso.DefaultClaims()
	c["aud"] = "Some Other Service"

	_, err := validator.Validate(context.Background(), sso.SignToken(c))
	assertInvalidKind(t, err, TokenAudienceMismatch)
}

func TestValidator_Validate_AudienceArray(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	// EVE SSO v2 tokens carry aud as an array including the client id.
	c := sso.DefaultClaims()
	c["aud"] = []interface{}{"test-client", "EVE Online"}

	if _, err := validator.Validate(context.Background(), sso.SignToken(c)); err != nil {
		t.Fatalf("array audience containing an accepted value should pass, got: %v", err)
	}
}

func TestValidator_Validate_IssuerMismatch(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	c := sso.DefaultClaims()
	c["iss"] = "https://evil.example.com"

	_, err := validator.Validate(context.Background(), sso.SignToken(c))
	assertInvalidKind(t, err, TokenIssuerMismatch)
}

func TestValidator_Validate_KeyNotFound(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	_, err := validator.Validate(context.Background(), sso.SignTokenWithKid("unknown-kid", sso.DefaultClaims()))
	assertInvalidKind(t, err, TokenKeyNotFound)
}

func TestValidator_Validate_SignatureInvalid(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	foreignKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate foreign key: %v", err)
	}

	_, verr := validator.Validate(context.Background(), sso.SignTokenWithKey(foreignKey, sso.DefaultClaims()))
	assertInvalidKind(t, verr, TokenSignatureInvalid)
}

func TestValidator_Validate_Malformed(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	_, err := validator.Validate(context.Background(), "not-a-jwt")
	assertInvalidKind(t, err, TokenMalformed)
}

func TestValidator_Validate_NonNumericSubject(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	validator := newTestValidator(t, sso)

	c := sso.DefaultClaims()
	c["sub"] = "CHARACTER:EVE:not-a-number"

	_, err := validator.Validate(context.Background(), sso.SignToken(c))
	assertInvalidKind(t, err, TokenMalformed)
}

func TestValidator_SharesJWKSCache(t *testing.T) {
	sso := mock.NewSSOServer(mock.SSOServerConfig{})
	defer sso.Close()

	jwksClient := NewJWKSClient()
	validator := NewValidator(jwksClient, ValidatorConfig{
		JWKSURL:   sso.JWKSEndpoint(),
		Audiences: []string{"EVE Online"},
		Issuers:   []string{sso.URL()},
	})

	for i := 0; i < 5; i++ {
		if _, err := validator.Validate(context.Background(), sso.SignToken(sso.DefaultClaims())); err != nil {
			t.Fatalf("Validate %d failed: %v", i, err)
		}
	}

	// A second validator sharing the client must reuse the cached keys.
	validator2 := NewValidator(jwksClient, ValidatorConfig{
		JWKSURL:   sso.JWKSEndpoint(),
		Audiences: []string{"EVE Online"},
		Issuers:   []string{sso.URL()},
	})
	if _, err := validator2.Validate(context.Background(), sso.SignToken(sso.DefaultClaims())); err != nil {
		t.Fatalf("Validate with shared cache failed: %v", err)
	}
}

func TestScopesFromClaim(t *testing.T) {
	cases := []struct {
		name  string
		claim interface{}
		want  int
	}{
		{"nil", nil, 0},
		{"empty string", "", 0},
		{"string", "publicData", 1},
		{"array", []interface{}{"a", "b", "c"}, 3},
		{"array with junk", []interface{}{"a", 42}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := scopesFromClaim(tc.claim); len(got) != tc.want {
				t.Errorf("scopesFromClaim(%v) = %v, want %d entries", tc.claim, got, tc.want)
			}
		})
	}
}

func TestCharacterIDFromSubject(t *testing.T) {
	id, err := characterIDFromSubject("CHARACTER:EVE:2112625428")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 2112625428 {
		t.Errorf("id = %d", id)
	}

	if _, err := characterIDFromSubject("CHARACTER:EVE:xyz"); err == nil {
		t.Error("expected error for non-numeric subject")
	}
}
