package sso

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCsrfMismatchError_DoesNotLeakFullState(t *testing.T) {
	err := &CsrfMismatchError{
		Expected: "expected-state-value-that-is-long",
		Received: "received-state-value-that-is-long",
	}

	msg := err.Error()
	if strings.Contains(msg, "expected-state-value-that-is-long") {
		t.Error("message must not contain the full expected state")
	}
	if strings.Contains(msg, "received-state-value-that-is-long") {
		t.Error("message must not contain the full received state")
	}
	if !strings.Contains(msg, "expected") {
		t.Errorf("message should still describe the mismatch: %s", msg)
	}
}

func TestCallbackError_Messages(t *testing.T) {
	cases := []struct {
		name string
		err  *CallbackError
		want string
	}{
		{"code and description", &CallbackError{Code: "access_denied", Description: "nope"}, "access_denied: nope"},
		{"code only", &CallbackError{Code: "server_error"}, "server_error"},
		{"missing code", &CallbackError{}, "missing authorization code"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !strings.Contains(tc.err.Error(), tc.want) {
				t.Errorf("Error() = %q, should contain %q", tc.err.Error(), tc.want)
			}
		})
	}
}

func TestCallbackTimeoutError(t *testing.T) {
	err := &CallbackTimeoutError{Waited: 300 * time.Second}
	if !strings.Contains(err.Error(), "5m0s") {
		t.Errorf("Error() = %q, should contain the waited duration", err.Error())
	}
}

func TestTokenInvalidError_Is(t *testing.T) {
	expired := &TokenInvalidError{Kind: TokenExpired}
	wrapped := fmt.Errorf("validating: %w", expired)

	if !errors.Is(wrapped, &TokenInvalidError{Kind: TokenExpired}) {
		t.Error("errors.Is should match the same kind through wrapping")
	}
	if errors.Is(wrapped, &TokenInvalidError{Kind: TokenAudienceMismatch}) {
		t.Error("errors.Is must not match a different kind")
	}
}

func TestTokenInvalidKind_String(t *testing.T) {
	kinds := []TokenInvalidKind{
		TokenMalformed, TokenExpired, TokenSignatureInvalid,
		TokenAudienceMismatch, TokenIssuerMismatch, TokenKeyNotFound,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		if s == "" {
			t.Errorf("kind %d has empty String()", k)
		}
		if seen[s] {
			t.Errorf("kind %d duplicates string %q", k, s)
		}
		seen[s] = true
	}
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Field: "client_id", Reason: "no client id configured"}
	if !strings.Contains(err.Error(), "client_id") {
		t.Errorf("Error() = %q, should name the field", err.Error())
	}
	if !errors.Is(fmt.Errorf("wrap: %w", err), &ConfigurationError{}) {
		t.Error("errors.Is should match any ConfigurationError")
	}
}
