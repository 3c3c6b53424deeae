package oauth

import (
	"fmt"
)

// ProviderError indicates the authorization server answered a token request
// with a non-success status. The OAuth error fields are populated when the
// response body carried a standard error document.
type ProviderError struct {
	// StatusCode is the HTTP status returned by the provider.
	StatusCode int
	// OAuthError is the "error" field of the OAuth error response, if any.
	OAuthError string
	// OAuthErrorDescription is the "error_description" field, if any.
	OAuthErrorDescription string
	// Body is the raw response body, kept for diagnostics.
	Body string
}

// Error returns a human-readable message for the provider error.
func (e *ProviderError) Error() string {
	if e.OAuthError != "" {
		if e.OAuthErrorDescription != "" {
			return fmt.Sprintf("provider rejected request (status %d): %s: %s",
				e.StatusCode, e.OAuthError, e.OAuthErrorDescription)
		}
		return fmt.Sprintf("provider rejected request (status %d): %s", e.StatusCode, e.OAuthError)
	}
	return fmt.Sprintf("provider rejected request (status %d)", e.StatusCode)
}

// Is allows errors.Is() to match any ProviderError.
func (e *ProviderError) Is(target error) bool {
	_, ok := target.(*ProviderError)
	return ok
}

// Temporary reports whether retrying the same request later could succeed.
// Server-side errors and rate limiting are temporary; invalid_grant is not.
func (e *ProviderError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// NetworkError indicates a token or metadata request never produced a
// provider response (DNS failure, refused connection, timeout).
type NetworkError struct {
	// Op describes the attempted operation ("exchange", "refresh", "metadata", "jwks").
	Op string
	// URL is the endpoint that could not be reached.
	URL string
	// Err is the underlying transport error.
	Err error
}

// Error returns a human-readable message for the network error.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s request to %s failed: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is() to match any NetworkError.
func (e *NetworkError) Is(target error) bool {
	_, ok := target.(*NetworkError)
	return ok
}
