package config

import (
	"time"
)

// SSOConfig holds the authorization server endpoints and token acceptance
// rules. The defaults target EVE Online's SSO; a config file only needs to
// override them when pointing at a test provider.
type SSOConfig struct {
	// AuthorizationEndpoint is the authorize URL.
	AuthorizationEndpoint string `yaml:"authorizationEndpoint,omitempty"`
	// TokenEndpoint is the token URL.
	TokenEndpoint string `yaml:"tokenEndpoint,omitempty"`
	// JWKSEndpoint is where the provider publishes signing keys.
	JWKSEndpoint string `yaml:"jwksEndpoint,omitempty"`
	// MetadataIssuer is the issuer used for RFC 8414 discovery.
	MetadataIssuer string `yaml:"metadataIssuer,omitempty"`
	// Audience is the accepted token audience.
	Audience string `yaml:"audience,omitempty"`
	// Issuers is the accepted-issuer allow-list.
	Issuers []string `yaml:"issuers,omitempty"`
}

// CallbackConfig holds the local callback listener settings. Host and port
// must match the redirect URI registered with the provider.
type CallbackConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
	// TimeoutSeconds bounds the wait for the authorization callback.
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
}

// RefreshConfig tunes proactive token refresh.
type RefreshConfig struct {
	// BufferMinutes is how long before expiry a token counts as needing
	// refresh. Negative disables proactive refresh.
	BufferMinutes int `yaml:"bufferMinutes,omitempty"`
	// Concurrency bounds parallel refreshes in a batch.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// UserAgentConfig identifies the operator in outbound requests, per the
// ESI developer guidelines.
type UserAgentConfig struct {
	// AppName overrides the application name.
	AppName string `yaml:"appName,omitempty"`
	// Contact is an email or character name reachable by the provider.
	Contact string `yaml:"contact,omitempty"`
}

// Config is the top-level configuration structure for esiauth.
type Config struct {
	SSO       SSOConfig       `yaml:"sso"`
	Callback  CallbackConfig  `yaml:"callback"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	UserAgent UserAgentConfig `yaml:"userAgent"`
	// DefaultScopes are requested when a login names none.
	DefaultScopes []string `yaml:"defaultScopes,omitempty"`
	// DefaultClientID selects the credentials used when a command names no
	// client id.
	DefaultClientID string `yaml:"defaultClientId,omitempty"`
}

// GetDefaultConfig returns the EVE SSO defaults.
func GetDefaultConfig() Config {
	return Config{
		SSO: SSOConfig{
			AuthorizationEndpoint: "https://login.eveonline.com/v2/oauth/authorize",
			TokenEndpoint:         "https://login.eveonline.com/v2/oauth/token",
			JWKSEndpoint:          "https://login.eveonline.com/oauth/jwks",
			MetadataIssuer:        "https://login.eveonline.com",
			Audience:              "EVE Online",
			Issuers: []string{
				"login.eveonline.com",
				"https://login.eveonline.com",
			},
		},
		Callback: CallbackConfig{
			Host:           "localhost",
			Port:           8635,
			TimeoutSeconds: 300,
		},
		Refresh: RefreshConfig{
			BufferMinutes: 5,
			Concurrency:   4,
		},
		DefaultScopes: []string{"publicData"},
	}
}

// CallbackTimeout returns the callback timeout as a duration.
func (c *Config) CallbackTimeout() time.Duration {
	return time.Duration(c.Callback.TimeoutSeconds) * time.Second
}

// RefreshBuffer returns the refresh buffer as a duration. A negative
// configured buffer stays negative so proactive refresh can be disabled.
func (c *Config) RefreshBuffer() time.Duration {
	return time.Duration(c.Refresh.BufferMinutes) * time.Minute
}
