package sso

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"esiauth/internal/token"
	"esiauth/pkg/logging"
	"esiauth/pkg/oauth"
)

// TokenSaver persists a character token. The token store implements it.
type TokenSaver interface {
	SaveToken(t *token.CharacterToken) error
}

// Config describes one authorization flow target.
type Config struct {
	// ClientID is the registered public client.
	ClientID string
	// Scopes are the scopes to request.
	Scopes []string
	// AuthorizationEndpoint is the provider authorize URL.
	AuthorizationEndpoint string
	// TokenEndpoint is the provider token URL.
	TokenEndpoint string
	// CallbackHost and CallbackPort define the redirect URI. They must match
	// the redirect URI registered for the client. Zero port means
	// DefaultCallbackPort; a negative port binds an ephemeral one.
	CallbackHost string
	CallbackPort int
	// CallbackTimeout bounds the wait for the callback. Zero means
	// DefaultCallbackTimeout.
	CallbackTimeout time.Duration
}

// Flow is one in-progress authorization attempt. It is single-use: Wait may
// be called exactly once, after which the callback listener is gone.
type Flow struct {
	// ID identifies the attempt in log output.
	ID string
	// AuthorizationURL is where the user must authorize the request.
	AuthorizationURL string

	auth    *Authenticator
	state   string
	pkce    *oauth.PKCEChallenge
	server  *CallbackServer
	timeout time.Duration
}

// Authenticator runs the complete authorization-code-with-PKCE flow: fresh
// PKCE and state per attempt, a single-shot local callback listener, state
// verification, code exchange, and JWT validation of the returned token.
type Authenticator struct {
	oauthClient *oauth.Client
	validator   *Validator
	saver       TokenSaver
	config      Config
}

// NewAuthenticator creates an authenticator. The saver may be nil, in which
// case the caller persists tokens itself.
func NewAuthenticator(oauthClient *oauth.Client, validator *Validator, saver TokenSaver, config Config) *Authenticator {
	return &Authenticator{
		oauthClient: oauthClient,
		validator:   validator,
		saver:       saver,
		config:      config,
	}
}

// StartLogin validates the configuration, generates the per-flow secrets,
// starts the callback listener, and returns the flow with its authorization
// URL. The listener is already bound when this returns, so the URL can be
// opened immediately.
func (a *Authenticator) StartLogin(ctx context.Context) (*Flow, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}

	flowID := uuid.NewString()

	pkce, err := oauth.GeneratePKCE()
	if err != nil {
		return nil, err
	}

	state, err := oauth.GenerateState()
	if err != nil {
		return nil, err
	}

	port := a.config.CallbackPort
	if port == 0 {
		port = DefaultCallbackPort
	}

	server := NewCallbackServer(a.config.CallbackHost, port)
	callbackURL, err := server.Start(ctx)
	if err != nil {
		return nil, err
	}

	authURL, err := a.oauthClient.BuildAuthorizationURL(
		a.config.AuthorizationEndpoint,
		a.config.ClientID,
		callbackURL,
		state,
		strings.Join(a.config.Scopes, " "),
		pkce,
	)
	if err != nil {
		server.Stop()
		return nil, &ConfigurationError{Field: "authorization_endpoint", Reason: err.Error()}
	}

	timeout := a.config.CallbackTimeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}

	logging.Info("Auth", "authorization flow %s started on %s", flowID, server.GetRedirectURI())

	return &Flow{
		ID:               flowID,
		AuthorizationURL: authURL,
		auth:             a,
		state:            state,
		pkce:             pkce,
		server:           server,
		timeout:          timeout,
	}, nil
}

// checkConfig verifies the settings a flow cannot run without.
func (a *Authenticator) checkConfig() error {
	if a.config.ClientID == "" {
		return &ConfigurationError{Field: "client_id", Reason: "no client id configured"}
	}
	if a.config.AuthorizationEndpoint == "" {
		return &ConfigurationError{Field: "authorization_endpoint", Reason: "no authorization endpoint configured"}
	}
	if _, err := url.Parse(a.config.AuthorizationEndpoint); err != nil {
		return &ConfigurationError{Field: "authorization_endpoint", Reason: err.Error()}
	}
	if a.config.TokenEndpoint == "" {
		return &ConfigurationError{Field: "token_endpoint", Reason: "no token endpoint configured"}
	}
	return nil
}

// Wait blocks until the callback arrives, then finishes the flow: state
// verification, code exchange, token validation, and persistence. The
// callback listener is stopped on every path.
func (f *Flow) Wait(ctx context.Context) (*token.CharacterToken, error) {
	defer f.server.Stop()

	waitCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	started := time.Now()
	result, err := f.server.WaitForCallback(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &CallbackTimeoutError{Waited: time.Since(started).Round(time.Second)}
		}
		return nil, err
	}

	if result.IsError() {
		logging.Warn("Auth", "flow %s: provider returned error %s", f.ID, result.Error)
		return nil, &CallbackError{Code: result.Error, Description: result.ErrorDescription}
	}

	// The code is only usable after the state proves the callback belongs
	// to this flow.
	if subtle.ConstantTimeCompare([]byte(result.State), []byte(f.state)) != 1 {
		logging.Warn("Auth", "flow %s: state mismatch on callback", f.ID)
		// Only prefixes leave this function; the full values stay inside
		// the flow.
		return nil, &CsrfMismatchError{
			Expected: prefix(f.state, statePrefixLen),
			Received: prefix(result.State, statePrefixLen),
		}
	}

	if result.Code == "" {
		return nil, &CallbackError{}
	}

	resp, err := f.auth.oauthClient.ExchangeCode(ctx, f.auth.config.TokenEndpoint, oauth.ExchangeRequest{
		Code:         result.Code,
		RedirectURI:  f.server.GetRedirectURI(),
		ClientID:     f.auth.config.ClientID,
		CodeVerifier: f.pkce.CodeVerifier,
	})
	if err != nil {
		return nil, err
	}

	claims, err := f.auth.validator.Validate(ctx, resp.AccessToken)
	if err != nil {
		return nil, err
	}

	t := token.New(resp, claims.CharacterID, claims.CharacterName, f.auth.config.ClientID)
	if len(t.Scopes) == 0 {
		t.Scopes = claims.Scopes
	}

	if f.auth.saver != nil {
		if err := f.auth.saver.SaveToken(t); err != nil {
			return nil, err
		}
	}

	logging.Info("Auth", "flow %s: authorized %s (%d)", f.ID, t.CharacterName, t.CharacterID)
	return t, nil
}

// Cancel abandons the flow and releases the callback port.
func (f *Flow) Cancel() {
	f.server.Stop()
}
