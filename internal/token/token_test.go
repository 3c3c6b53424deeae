package token

import (
	"testing"
	"time"

	"esiauth/pkg/oauth"
)

func testToken(expiresIn time.Duration) *CharacterToken {
	now := time.Now().UTC()
	return &CharacterToken{
		CharacterID:   91316135,
		CharacterName: "Test Pilot",
		AccessToken:   "access",
		RefreshToken:  "refresh",
		TokenType:     "Bearer",
		Scopes:        []string{"publicData"},
		ExpiresAt:     now.Add(expiresIn),
		ClientID:      "client-abc",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestNew(t *testing.T) {
	resp := &oauth.Token{
		AccessToken:  "access-123",
		TokenType:    "Bearer",
		RefreshToken: "refresh-456",
		ExpiresIn:    1199,
		Scope:        "publicData esi-skills.read_skills.v1",
	}

	tok := New(resp, 91316135, "Test Pilot", "client-abc")

	if tok.CharacterID != 91316135 {
		t.Errorf("CharacterID = %d", tok.CharacterID)
	}
	if tok.CharacterName != "Test Pilot" {
		t.Errorf("CharacterName = %q", tok.CharacterName)
	}
	if len(tok.Scopes) != 2 {
		t.Errorf("Scopes = %v", tok.Scopes)
	}
	if tok.ExpiresAt.IsZero() {
		t.Error("ExpiresAt should be derived from expires_in")
	}
	if !tok.CreatedAt.Equal(tok.UpdatedAt) {
		t.Error("CreatedAt and UpdatedAt should match on creation")
	}
	if tok.ExpiresAt.Location() != time.UTC {
		t.Error("ExpiresAt should be UTC")
	}
}

func TestCharacterToken_IsExpired(t *testing.T) {
	t.Run("future expiry", func(t *testing.T) {
		if testToken(20 * time.Minute).IsExpired() {
			t.Error("token valid for 20 minutes should not be expired")
		}
	})

	t.Run("past expiry", func(t *testing.T) {
		if !testToken(-time.Minute).IsExpired() {
			t.Error("token expired a minute ago should be expired")
		}
	})
}

func TestCharacterToken_NeedsRefresh(t *testing.T) {
	t.Run("outside buffer", func(t *testing.T) {
		if testToken(10 * time.Minute).NeedsRefresh(5 * time.Minute) {
			t.Error("10 minutes left with 5 minute buffer should not need refresh")
		}
	})

	t.Run("inside buffer", func(t *testing.T) {
		if !testToken(3 * time.Minute).NeedsRefresh(5 * time.Minute) {
			t.Error("3 minutes left with 5 minute buffer should need refresh")
		}
	})

	t.Run("expired always needs refresh", func(t *testing.T) {
		if !testToken(-time.Minute).NeedsRefresh(0) {
			t.Error("expired token should need refresh even with zero buffer")
		}
	})

	t.Run("negative buffer disables proactive refresh", func(t *testing.T) {
		if testToken(time.Minute).NeedsRefresh(-1) {
			t.Error("valid token with negative buffer should not need refresh")
		}
		if !testToken(-time.Minute).NeedsRefresh(-1) {
			t.Error("expired token should need refresh regardless of buffer")
		}
	})

	t.Run("buffer capped at 15 minutes", func(t *testing.T) {
		tok := testToken(18 * time.Minute)
		if tok.NeedsRefresh(time.Hour) {
			t.Error("an hour-long buffer must be capped; 18 minutes of validity should pass")
		}
		if !testToken(14 * time.Minute).NeedsRefresh(time.Hour) {
			t.Error("14 minutes of validity falls inside the capped buffer")
		}
	})
}

func TestCharacterToken_MinutesUntilExpiry(t *testing.T) {
	got := testToken(10 * time.Minute).MinutesUntilExpiry()
	if got < 9.9 || got > 10.1 {
		t.Errorf("MinutesUntilExpiry() = %f, want ~10", got)
	}

	if testToken(-5*time.Minute).MinutesUntilExpiry() >= 0 {
		t.Error("expired token should report negative minutes")
	}
}

func TestCharacterToken_ApplyRefresh(t *testing.T) {
	t.Run("rotates refresh token when provided", func(t *testing.T) {
		tok := testToken(time.Minute)
		tok.ApplyRefresh(&oauth.Token{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    1199,
		})

		if tok.AccessToken != "new-access" {
			t.Errorf("AccessToken = %q", tok.AccessToken)
		}
		if tok.RefreshToken != "new-refresh" {
			t.Errorf("RefreshToken = %q", tok.RefreshToken)
		}
	})

	t.Run("keeps refresh token when response omits it", func(t *testing.T) {
		tok := testToken(time.Minute)
		tok.ApplyRefresh(&oauth.Token{
			AccessToken: "new-access",
			ExpiresIn:   1199,
		})

		if tok.RefreshToken != "refresh" {
			t.Errorf("RefreshToken = %q, want original preserved", tok.RefreshToken)
		}
	})

	t.Run("UpdatedAt strictly increases", func(t *testing.T) {
		tok := testToken(time.Minute)
		previous := tok.UpdatedAt

		for i := 0; i < 3; i++ {
			tok.ApplyRefresh(&oauth.Token{AccessToken: "a", ExpiresIn: 1199})
			if !tok.UpdatedAt.After(previous) {
				t.Fatalf("UpdatedAt did not advance on refresh %d", i)
			}
			previous = tok.UpdatedAt
		}
	})

	t.Run("extends expiry", func(t *testing.T) {
		tok := testToken(-time.Minute)
		tok.ApplyRefresh(&oauth.Token{AccessToken: "a", ExpiresIn: 1199})

		if tok.IsExpired() {
			t.Error("refreshed token should not be expired")
		}
	})
}
