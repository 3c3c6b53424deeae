package sso

import (
	"fmt"
	"time"
)

// statePrefixLen is how much of a state value a CsrfMismatchError carries.
// Enough to correlate log lines, far too little to replay a flow.
const statePrefixLen = 8

// CsrfMismatchError indicates the state parameter returned on the callback
// does not match the state sent with the authorization request. The
// authorization code received alongside it must be discarded.
//
// The fields hold only the leading statePrefixLen characters of each value;
// the full states never leave the flow.
type CsrfMismatchError struct {
	// Expected is a prefix of the state generated for the authorization
	// request.
	Expected string
	// Received is a prefix of the state that came back on the callback.
	Received string
}

func (e *CsrfMismatchError) Error() string {
	return fmt.Sprintf("state mismatch on callback (expected %s..., received %s...): possible CSRF attempt",
		prefix(e.Expected, statePrefixLen), prefix(e.Received, statePrefixLen))
}

// Is allows errors.Is() to match any CsrfMismatchError.
func (e *CsrfMismatchError) Is(target error) bool {
	_, ok := target.(*CsrfMismatchError)
	return ok
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CallbackError indicates the provider redirected back with an error instead
// of an authorization code, or the callback was missing the code entirely.
type CallbackError struct {
	// Code is the OAuth error code ("access_denied", ...). Empty when the
	// callback was malformed rather than an explicit provider error.
	Code string
	// Description is the provider's human-readable description, if any.
	Description string
}

func (e *CallbackError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("authorization callback failed: %s: %s", e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("authorization callback failed: %s", e.Code)
	default:
		return "authorization callback missing authorization code"
	}
}

// Is allows errors.Is() to match any CallbackError.
func (e *CallbackError) Is(target error) bool {
	_, ok := target.(*CallbackError)
	return ok
}

// CallbackTimeoutError indicates no callback arrived before the deadline.
type CallbackTimeoutError struct {
	// Waited is how long the listener waited.
	Waited time.Duration
}

func (e *CallbackTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for the authorization callback", e.Waited)
}

// Is allows errors.Is() to match any CallbackTimeoutError.
func (e *CallbackTimeoutError) Is(target error) bool {
	_, ok := target.(*CallbackTimeoutError)
	return ok
}

// TokenInvalidKind identifies the specific JWT validation failure.
type TokenInvalidKind int

const (
	// TokenMalformed means the token could not be parsed as a JWT.
	TokenMalformed TokenInvalidKind = iota
	// TokenExpired means the exp claim is in the past.
	TokenExpired
	// TokenSignatureInvalid means the signature did not verify against the
	// resolved key.
	TokenSignatureInvalid
	// TokenAudienceMismatch means the aud claim matched no accepted audience.
	TokenAudienceMismatch
	// TokenIssuerMismatch means the iss claim matched no accepted issuer.
	TokenIssuerMismatch
	// TokenKeyNotFound means the kid header matched no key in the JWKS.
	TokenKeyNotFound
)

// String returns a human-readable name for the validation failure kind.
func (k TokenInvalidKind) String() string {
	switch k {
	case TokenExpired:
		return "token expired"
	case TokenSignatureInvalid:
		return "signature invalid"
	case TokenAudienceMismatch:
		return "audience mismatch"
	case TokenIssuerMismatch:
		return "issuer mismatch"
	case TokenKeyNotFound:
		return "signing key not found"
	default:
		return "malformed token"
	}
}

// TokenInvalidError indicates JWT validation failed.
type TokenInvalidError struct {
	// Kind identifies the failure.
	Kind TokenInvalidKind
	// Reason is the underlying error, if any.
	Reason error
}

func (e *TokenInvalidError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("token validation failed: %s: %v", e.Kind, e.Reason)
	}
	return fmt.Sprintf("token validation failed: %s", e.Kind)
}

// Unwrap returns the underlying error.
func (e *TokenInvalidError) Unwrap() error {
	return e.Reason
}

// Is matches another *TokenInvalidError of the same kind.
func (e *TokenInvalidError) Is(target error) bool {
	other, ok := target.(*TokenInvalidError)
	return ok && other.Kind == e.Kind
}

// ConfigurationError indicates the flow cannot start because a setting or
// credential is missing or invalid.
type ConfigurationError struct {
	// Field names the offending setting.
	Field string
	// Reason describes what is wrong with it.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Is allows errors.Is() to match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}
