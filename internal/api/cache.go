package api

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// ClientCache hands out the process-wide API client bound to the current
// session. Reset forces the next Get to construct a fresh client, which the
// session persister calls after replacing the token set.
type ClientCache struct {
	mu sync.Mutex

	endpoint   string
	insecure   bool
	tokenFn    func() string
	identities *gocache.Cache

	client *Client
}

// NewClientCache creates a client cache. tokenFn is consulted lazily so the
// client always binds to the session current at construction time.
func NewClientCache(endpoint string, insecure bool, tokenFn func() string, identities *gocache.Cache) *ClientCache {
	return &ClientCache{
		endpoint:   endpoint,
		insecure:   insecure,
		tokenFn:    tokenFn,
		identities: identities,
	}
}

// Get returns the cached client, constructing one on first use or after a
// Reset.
func (c *ClientCache) Get() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		c.client = NewClient(c.endpoint, c.tokenFn(), c.insecure, c.identities)
	}
	return c.client
}

// Reset drops the cached client so the next Get rebinds to the current
// session.
func (c *ClientCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = nil
}
