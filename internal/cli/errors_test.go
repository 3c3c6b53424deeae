package cli

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyConnectionError(t *testing.T) {
	endpoint := "https://login.eveonline.com/v2/oauth/token"

	tests := []struct {
		name string
		err  error
		want ConnectionErrorType
	}{
		{
			name: "x509 unknown authority",
			err:  x509.UnknownAuthorityError{},
			want: ConnectionErrorTLS,
		},
		{
			name: "tls message",
			err:  errors.New("remote error: tls: handshake failure"),
			want: ConnectionErrorTLS,
		},
		{
			name: "dns failure",
			err:  &net.DNSError{Err: "no such host", Name: "login.eveonline.com"},
			want: ConnectionErrorDNS,
		},
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("request failed: %w", context.DeadlineExceeded),
			want: ConnectionErrorTimeout,
		},
		{
			name: "url timeout",
			err:  &url.Error{Op: "Get", URL: endpoint, Err: &timeoutError{}},
			want: ConnectionErrorTimeout,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:443: connect: connection refused"),
			want: ConnectionErrorNetwork,
		},
		{
			name: "unclassified",
			err:  errors.New("something odd happened"),
			want: ConnectionErrorUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connErr := ClassifyConnectionError(tt.err, endpoint)
			require.NotNil(t, connErr)
			assert.Equal(t, tt.want, connErr.Type)
			assert.Equal(t, endpoint, connErr.Endpoint)
			assert.ErrorIs(t, connErr, tt.err)
		})
	}

	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, ClassifyConnectionError(nil, endpoint))
	})
}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "i/o timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

func TestConnectionErrorTypeString(t *testing.T) {
	assert.Equal(t, "TLS certificate error", ConnectionErrorTLS.String())
	assert.Equal(t, "Network error", ConnectionErrorNetwork.String())
	assert.Equal(t, "Connection timeout", ConnectionErrorTimeout.String())
	assert.Equal(t, "DNS resolution error", ConnectionErrorDNS.String())
	assert.Equal(t, "Connection error", ConnectionErrorUnknown.String())
}

func TestAuthRequiredError(t *testing.T) {
	withID := &AuthRequiredError{CharacterID: 91316135}
	assert.Contains(t, withID.Error(), "91316135")
	assert.Contains(t, withID.Error(), "esiauth login")

	withoutID := &AuthRequiredError{}
	assert.Contains(t, withoutID.Error(), "esiauth login")

	wrapped := fmt.Errorf("wrapped: %w", withID)
	assert.ErrorIs(t, wrapped, &AuthRequiredError{})
}

func TestAuthExpiredError(t *testing.T) {
	err := &AuthExpiredError{CharacterName: "Test Pilot"}
	assert.Contains(t, err.Error(), "Test Pilot")
	assert.Contains(t, err.Error(), "esiauth login")

	wrapped := fmt.Errorf("wrapped: %w", err)
	assert.ErrorIs(t, wrapped, &AuthExpiredError{})
}

func TestAuthFailedError(t *testing.T) {
	cause := errors.New("access_denied")
	err := &AuthFailedError{Reason: cause}
	assert.Contains(t, err.Error(), "access_denied")
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("wrapped: %w", err)
	assert.ErrorIs(t, wrapped, &AuthFailedError{})
}
