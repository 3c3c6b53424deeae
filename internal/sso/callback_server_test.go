package sso

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestCallbackServer_Start_PortBinding(t *testing.T) {
	t.Run("binds an ephemeral port", func(t *testing.T) {
		server := NewCallbackServer("localhost", 0)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		callbackURL, err := server.Start(ctx)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer server.Stop()

		if callbackURL == "" {
			t.Error("expected non-empty callback URL")
		}

		if !strings.Contains(callbackURL, "/callback") {
			t.Errorf("callback URL should contain '/callback', got: %s", callbackURL)
		}

		if server.GetPort() == 0 {
			t.Error("expected non-zero port after start")
		}
	})

	t.Run("two servers get different ports", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		server1 := NewCallbackServer("localhost", 0)
		if _, err := server1.Start(ctx); err != nil {
			t.Fatalf("could not start first server: %v", err)
		}
		defer server1.Stop()

		server2 := NewCallbackServer("localhost", 0)
		if _, err := server2.Start(ctx); err != nil {
			t.Fatalf("could not start second server: %v", err)
		}
		defer server2.Stop()

		if server1.GetPort() == server2.GetPort() {
			t.Errorf("expected different ports, both got %d", server1.GetPort())
		}
	})

	t.Run("rejects a port that is already bound", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		server1 := NewCallbackServer("localhost", 0)
		if _, err := server1.Start(ctx); err != nil {
			t.Fatalf("could not start first server: %v", err)
		}
		defer server1.Stop()

		server2 := NewCallbackServer("localhost", server1.GetPort())
		if _, err := server2.Start(ctx); err == nil {
			server2.Stop()
			t.Error("expected bind error on an occupied port")
		}
	})
}

func TestCallbackServer_HandleCallback_Success(t *testing.T) {
	server := NewCallbackServer("localhost", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callbackURL, err := server.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	defer server.Stop()

	go func() {
		time.Sleep(100 * time.Millisecond)
		resp, err := http.Get(callbackURL + "?code=test-code&state=test-state")
		if err != nil {
			return
		}
		resp.Body.Close()
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()

	result, err := server.WaitForCallback(waitCtx)
	if err != nil {
		t.Fatalf("WaitForCallback failed: %v", err)
	}

	if result.Code != "test-code" {
		t.Errorf("expected code 'test-code', got %q", result.Code)
	}

	if result.State != "test-state" {
		t.Errorf("expected state 'test-state', got %q", result.State)
	}

	if result.IsError() {
		t.Error("expected success, but IsError() returned true")
	}
}

func TestCallbackServer_HandleCallback_Error(t *testing.T) {
	server := NewCallbackServer("localhost", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callbackURL, err := server.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	defer server.Stop()

	go func() {
		time.Sleep(100 * time.Millisecond)
		resp, err := http.Get(callbackURL + "?error=access_denied&error_description=User+denied+access")
		if err != nil {
			return
		}
		resp.Body.Close()
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()

	result, err := server.WaitForCallback(waitCtx)
	if err != nil {
		t.Fatalf("WaitForCallback failed: %v", err)
	}

	if !result.IsError() {
		t.Error("expected error result, but IsError() returned false")
	}

	if result.Error != "access_denied" {
		t.Errorf("expected error 'access_denied', got %q", result.Error)
	}

	if result.ErrorDescription != "User denied access" {
		t.Errorf("expected error description 'User denied access', got %q", result.ErrorDescription)
	}
}

func TestCallbackServer_WaitForCallback_Timeout(t *testing.T) {
	server := NewCallbackServer("localhost", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := server.Start(ctx); err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	defer server.Stop()

	waitCtx, waitCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer waitCancel()

	result, err := server.WaitForCallback(waitCtx)

	if err == nil {
		t.Error("expected timeout error, got nil")
	}

	if result != nil {
		t.Errorf("expected nil result on timeout, got: %+v", result)
	}

	if err != context.DeadlineExceeded {
		t.Errorf("expected context.DeadlineExceeded, got: %v", err)
	}
}

func TestCallbackServer_SecurityHeaders(t *testing.T) {
	server := NewCallbackServer("localhost", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callbackURL, err := server.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	defer server.Stop()

	resp, err := http.Get(callbackURL + "?code=test-code&state=test-state")
	if err != nil {
		t.Fatalf("HTTP request failed: %v", err)
	}
	defer resp.Body.Close()

	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}

	for header, expectedValue := range expectedHeaders {
		if actual := resp.Header.Get(header); actual != expectedValue {
			t.Errorf("expected header %s=%q, got %q", header, expectedValue, actual)
		}
	}

	csp := resp.Header.Get("Content-Security-Policy")
	if csp == "" {
		t.Error("expected Content-Security-Policy header")
	} else if !strings.Contains(csp, "default-src") {
		t.Errorf("Content-Security-Policy should contain 'default-src', got: %s", csp)
	}
}

func TestCallbackServer_GetRedirectURI(t *testing.T) {
	server := NewCallbackServer("localhost", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := server.Start(ctx); err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	defer server.Stop()

	redirectURI := server.GetRedirectURI()

	if !strings.HasSuffix(redirectURI, "/callback") {
		t.Errorf("redirect URI should end with '/callback', got: %s", redirectURI)
	}

	if !strings.HasPrefix(redirectURI, "http://localhost:") {
		t.Errorf("redirect URI should start with 'http://localhost:', got: %s", redirectURI)
	}
}

func TestCallbackServer_ContextCancellation_ReleasesPort(t *testing.T) {
	server := NewCallbackServer("localhost", 0)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := server.Start(ctx); err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	port := server.GetPort()

	cancel()
	time.Sleep(200 * time.Millisecond)

	// The port must be bindable again after cancellation.
	server2 := NewCallbackServer("localhost", port)
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()

	if _, err := server2.Start(ctx2); err != nil {
		t.Errorf("port %d not released after cancellation: %v", port, err)
	} else {
		server2.Stop()
	}
}

func TestCallbackServer_Stop_Idempotent(t *testing.T) {
	server := NewCallbackServer("localhost", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := server.Start(ctx); err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}

	server.Stop()
	server.Stop()
}

func TestCallbackResult_IsError(t *testing.T) {
	testCases := []struct {
		name     string
		result   CallbackResult
		expected bool
	}{
		{
			name: "success with code",
			result: CallbackResult{
				Code:  "auth-code",
				State: "state",
			},
			expected: false,
		},
		{
			name: "error response",
			result: CallbackResult{
				Error:            "access_denied",
				ErrorDescription: "User denied access",
			},
			expected: true,
		},
		{
			name:     "empty result",
			result:   CallbackResult{},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.result.IsError() != tc.expected {
				t.Errorf("IsError() = %v, want %v", tc.result.IsError(), tc.expected)
			}
		})
	}
}

func TestCallbackServer_SecondCallbackRejected(t *testing.T) {
	server := NewCallbackServer("localhost", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callbackURL, err := server.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	defer server.Stop()

	go func() {
		time.Sleep(100 * time.Millisecond)
		resp, err := http.Get(callbackURL + "?code=first-code&state=first-state")
		if err == nil {
			resp.Body.Close()
		}
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()

	result, err := server.WaitForCallback(waitCtx)
	if err != nil {
		t.Fatalf("WaitForCallback failed: %v", err)
	}

	if result.Code != "first-code" {
		t.Errorf("expected first code, got %q", result.Code)
	}

	// A second callback must be rejected, not delivered.
	resp, err := http.Get(callbackURL + "?code=second-code&state=second-state")
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("second callback got status %d, want 400", resp.StatusCode)
		}
	}
}
