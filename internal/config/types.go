package config

import "time"

// CanopyConfig is the top-level configuration structure for the canopy CLI.
type CanopyConfig struct {
	API   APIConfig   `yaml:"api"`
	OAuth OAuthConfig `yaml:"oauth"`
	Login LoginConfig `yaml:"login"`
}

// APIConfig describes how to reach the Canopy control plane.
type APIConfig struct {
	// Endpoint is the base URL of the Canopy API (default: https://api.canopy.dev).
	Endpoint string `yaml:"endpoint,omitempty"`

	// InsecureSkipTLSVerify disables TLS certificate verification for the API
	// and the OAuth token endpoint. Only intended for on-prem installations
	// with private CAs.
	InsecureSkipTLSVerify bool `yaml:"insecureSkipTLSVerify,omitempty"`
}

// OAuthConfig describes the OAuth2 public client used for browser login.
type OAuthConfig struct {
	// AuthorizeURL is the authorization endpoint the browser is sent to.
	AuthorizeURL string `yaml:"authorizeURL,omitempty"`

	// TokenURL is the token endpoint used for the code-for-token exchange.
	TokenURL string `yaml:"tokenURL,omitempty"`

	// ClientID is the public OAuth client identifier. No client secret is
	// configured anywhere; canopy uses the public client flow.
	ClientID string `yaml:"clientID,omitempty"`
}

// LoginConfig tunes the local loopback capture of the authorization code.
type LoginConfig struct {
	// PortRangeStart and PortRangeEnd bound the loopback redirect ports.
	// The authorization server allow-lists this range, so ephemeral ports
	// cannot be used.
	PortRangeStart int `yaml:"portRangeStart,omitempty"`
	PortRangeEnd   int `yaml:"portRangeEnd,omitempty"`

	// Timeout caps the whole browser wait. Zero means wait indefinitely
	// while the local listener is alive, which matches the historical
	// behavior and lets slow human logins complete.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
