package config

// Default endpoints for the hosted Canopy platform. On-prem installations
// override all three via config.yaml or CANOPY_* environment variables.
const (
	DefaultAPIEndpoint  = "https://api.canopy.dev"
	DefaultAuthorizeURL = "https://id.canopy.dev/oauth/authorize"
	DefaultTokenURL     = "https://id.canopy.dev/oauth/token"
	DefaultClientID     = "canopy-cli"
)

// Default loopback redirect port range. Kept deliberately small: the
// authorization server only allow-lists these ports as redirect targets.
const (
	DefaultPortRangeStart = 5000
	DefaultPortRangeEnd   = 5010
)

// GetDefaultConfig returns the default configuration for canopy.
func GetDefaultConfig() CanopyConfig {
	return CanopyConfig{
		API: APIConfig{
			Endpoint: DefaultAPIEndpoint,
		},
		OAuth: OAuthConfig{
			AuthorizeURL: DefaultAuthorizeURL,
			TokenURL:     DefaultTokenURL,
			ClientID:     DefaultClientID,
		},
		Login: LoginConfig{
			PortRangeStart: DefaultPortRangeStart,
			PortRangeEnd:   DefaultPortRangeEnd,
		},
	}
}
