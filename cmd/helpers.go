package cmd

import (
	"errors"
	"fmt"
	"time"

	"esiauth/internal/cli"
	"esiauth/internal/config"
	"esiauth/internal/sso"
	"esiauth/internal/store"
	"esiauth/internal/token"
	"esiauth/internal/useragent"
	"esiauth/pkg/logging"
	"esiauth/pkg/oauth"

	"github.com/jedib0t/go-pretty/v6/text"
)

// uiPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func uiPrint(format string, args ...interface{}) {
	if !rootQuiet {
		fmt.Printf(format, args...)
	}
}

// uiPrintln prints a line only if the --quiet flag is not set.
func uiPrintln(a ...interface{}) {
	if !rootQuiet {
		fmt.Println(a...)
	}
}

// appEnv bundles the configuration and wired components every command needs.
type appEnv struct {
	cfg         config.Config
	tokens      *store.TokenStore
	credentials *store.CredentialStore
	oauthClient *oauth.Client
	validator   *sso.Validator
}

// buildEnv loads the configuration, opens the stores, and wires the OAuth
// client and validator with the configured User-Agent.
func buildEnv() (*appEnv, error) {
	cfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return nil, err
	}

	ua := useragent.Build(cfg.UserAgent.AppName, rootCmd.Version, cfg.UserAgent.Contact)

	tokens, err := store.NewTokenStore(rootConfigPath)
	if err != nil {
		return nil, err
	}
	credentials, err := store.NewCredentialStore(rootConfigPath)
	if err != nil {
		return nil, err
	}

	oauthClient := oauth.NewClient(oauth.WithUserAgent(ua))
	jwksClient := sso.NewJWKSClient(sso.WithJWKSUserAgent(ua))
	validator := sso.NewValidator(jwksClient, sso.ValidatorConfig{
		JWKSURL:   cfg.SSO.JWKSEndpoint,
		Audiences: []string{cfg.SSO.Audience},
		Issuers:   cfg.SSO.Issuers,
	})

	return &appEnv{
		cfg:         cfg,
		tokens:      tokens,
		credentials: credentials,
		oauthClient: oauthClient,
		validator:   validator,
	}, nil
}

// resolveCredentials picks the credentials for a command. An explicit
// --client-id that is not stored still works; the other settings fall back
// to the configured defaults.
func (e *appEnv) resolveCredentials(clientID string) (*store.Credentials, error) {
	if clientID == "" {
		clientID = e.cfg.DefaultClientID
	}

	c, err := e.credentials.Resolve(clientID)
	if err != nil {
		if clientID != "" {
			return &store.Credentials{
				ClientID: clientID,
				Scopes:   e.cfg.DefaultScopes,
			}, nil
		}
		return nil, err
	}
	return c, nil
}

// tokensForClient returns the stored tokens a command should operate on:
// all of them, or those of one client when a client id is given.
func (e *appEnv) tokensForClient(clientID string) []*token.CharacterToken {
	if clientID == "" {
		return e.tokens.ListAllTokens()
	}
	return e.tokens.ListTokens(clientID)
}

// startTokenWatcher reloads the token store when another process rewrites
// the tokens file, for example a second esiauth rotating refresh tokens
// while this one waits. The returned stop function is always safe to call.
func (e *appEnv) startTokenWatcher() func() {
	w := store.NewWatcher(store.WatcherConfig{
		Path: e.tokens.Path(),
		OnChange: func() {
			if err := e.tokens.Reload(); err != nil {
				logging.Warn("Store", "reload after external change failed: %v", err)
			}
		},
	})
	if err := w.Start(); err != nil {
		logging.Warn("Store", "token watcher unavailable: %v", err)
		return func() {}
	}
	return func() { _ = w.Stop() }
}

// describeConnectionError classifies transport failures so the user sees
// what kind of connectivity problem hit which endpoint. Non-network errors
// pass through unchanged.
func describeConnectionError(err error) error {
	var netErr *oauth.NetworkError
	if errors.As(err, &netErr) {
		return cli.ClassifyConnectionError(netErr.Err, netErr.URL)
	}
	return err
}

// findCharacterToken locates a character's token across all clients.
func (e *appEnv) findCharacterToken(characterID int64) *token.CharacterToken {
	for _, t := range e.tokens.ListAllTokens() {
		if t.CharacterID == characterID {
			return t
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(-remaining))
}

// formatTokenState renders the lifecycle state of a token with color.
func formatTokenState(t *token.CharacterToken, buffer time.Duration) string {
	switch {
	case t.IsExpired():
		return text.FgRed.Sprint("Expired")
	case t.NeedsRefresh(buffer):
		return text.FgYellow.Sprint("Expiring")
	default:
		return text.FgGreen.Sprint("Valid")
	}
}
