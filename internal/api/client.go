package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"canopy/pkg/logging"

	"github.com/hashicorp/go-retryablehttp"
	gocache "github.com/patrickmn/go-cache"
)

// identityCacheKey is the cache key for the current account's identity.
const identityCacheKey = "current-user"

// identityCacheTTL bounds how long an identity is served from cache.
const identityCacheTTL = 5 * time.Minute

// User is the authenticated account as reported by the control plane.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Client is the thin control-plane client the login flow needs: current
// account lookup and session invalidation. The general-purpose API surface
// lives elsewhere and is not part of this package.
type Client struct {
	endpoint   string
	token      string
	httpClient *retryablehttp.Client
	identities *gocache.Cache
}

// NewClient creates an API client bound to one session token.
// identities may be shared with other clients; it is flushed whenever the
// session is replaced.
func NewClient(endpoint, token string, insecureSkipVerify bool, identities *gocache.Cache) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 30 * time.Second
	if insecureSkipVerify {
		rc.HTTPClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- explicit operator opt-in
		}
	}

	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		httpClient: rc,
		identities: identities,
	}
}

// CurrentUser returns the account the session belongs to. The result is
// cached briefly; the cache is flushed whenever the session is replaced, so
// a fresh login never serves a stale identity.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if c.identities != nil {
		if cached, ok := c.identities.Get(identityCacheKey); ok {
			if user, ok := cached.(*User); ok {
				return user, nil
			}
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v2/account", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build account request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("account request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to parse account response: %w", err)
	}

	if c.identities != nil {
		c.identities.Set(identityCacheKey, &user, identityCacheTTL)
	}
	return &user, nil
}

// InvalidateSession logs the session out on the server side. A session that
// is already gone (401/404) counts as success; callers treat any error as
// best-effort anyway.
func (c *Client) InvalidateSession(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v2/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to build logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach logout endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		logging.Debug("API", "Previous session invalidated")
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		// Session already dead; nothing to invalidate.
		return nil
	default:
		return fmt.Errorf("logout request failed with status %d", resp.StatusCode)
	}
}
