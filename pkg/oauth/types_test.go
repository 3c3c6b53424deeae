package oauth

import (
	"testing"
	"time"
)

func TestToken_IsExpired(t *testing.T) {
	t.Run("expired token", func(t *testing.T) {
		token := &Token{ExpiresAt: time.Now().Add(-time.Minute)}
		if !token.IsExpired() {
			t.Error("token expired a minute ago should report expired")
		}
	})

	t.Run("token inside margin", func(t *testing.T) {
		token := &Token{ExpiresAt: time.Now().Add(10 * time.Second)}
		if !token.IsExpired() {
			t.Error("token expiring within the default margin should report expired")
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token := &Token{ExpiresAt: time.Now().Add(20 * time.Minute)}
		if token.IsExpired() {
			t.Error("token valid for 20 minutes should not report expired")
		}
	})

	t.Run("no expiry", func(t *testing.T) {
		token := &Token{}
		if token.IsExpired() {
			t.Error("token without expiry should never report expired")
		}
	})
}

func TestToken_SetExpiresAtFromExpiresIn(t *testing.T) {
	token := &Token{ExpiresIn: 1199}
	before := time.Now()
	token.SetExpiresAtFromExpiresIn()

	if token.ExpiresAt.IsZero() {
		t.Fatal("ExpiresAt should be set")
	}

	want := before.Add(1199 * time.Second)
	if diff := token.ExpiresAt.Sub(want); diff < 0 || diff > time.Second {
		t.Errorf("ExpiresAt off by %v", diff)
	}

	// Calling again must not move an already-set expiry
	first := token.ExpiresAt
	token.SetExpiresAtFromExpiresIn()
	if !token.ExpiresAt.Equal(first) {
		t.Error("second call should not overwrite ExpiresAt")
	}
}

func TestToken_Scopes(t *testing.T) {
	cases := []struct {
		name  string
		scope string
		want  int
	}{
		{"empty", "", 0},
		{"single", "publicData", 1},
		{"multiple", "publicData esi-skills.read_skills.v1", 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := &Token{Scope: tc.scope}
			if got := token.Scopes(); len(got) != tc.want {
				t.Errorf("Scopes() = %v, want %d entries", got, tc.want)
			}
		})
	}
}

func TestToken_ToOAuth2Token(t *testing.T) {
	expiry := time.Now().Add(20 * time.Minute)
	token := &Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		ExpiresAt:    expiry,
	}

	converted := token.ToOAuth2Token()
	if converted.AccessToken != "access" {
		t.Errorf("AccessToken = %q", converted.AccessToken)
	}
	if converted.RefreshToken != "refresh" {
		t.Errorf("RefreshToken = %q", converted.RefreshToken)
	}
	if !converted.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v, want %v", converted.Expiry, expiry)
	}
}

func TestMetadata_SupportsPKCE(t *testing.T) {
	cases := []struct {
		name    string
		methods []string
		want    bool
	}{
		{"S256 listed", []string{"plain", "S256"}, true},
		{"only plain", []string{"plain"}, false},
		{"unspecified assumes support", nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Metadata{CodeChallengeMethodsSupported: tc.methods}
			if got := m.SupportsPKCE(); got != tc.want {
				t.Errorf("SupportsPKCE() = %v, want %v", got, tc.want)
			}
		})
	}
}
