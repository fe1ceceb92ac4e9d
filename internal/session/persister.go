package session

import (
	"context"
	"fmt"
	"time"

	"canopy/pkg/logging"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

// Invalidator logs out the previous session on the server side.
// Implemented by the API client; invalidation is best-effort.
type Invalidator interface {
	InvalidateSession(ctx context.Context) error
}

// ClientResetter drops any cached API client so the next lookup constructs
// a fresh one bound to the new session.
type ClientResetter interface {
	Reset()
}

// Persister atomically supersedes the active session with a new token set.
// All shared state it touches is passed in explicitly; there is no implicit
// process-wide flush.
//
// Replace is not safe to interleave with another Replace for the same store;
// callers serialize login attempts.
type Persister struct {
	store       *Store
	invalidator Invalidator
	identities  *gocache.Cache
	clients     ClientResetter
}

// NewPersister wires a Persister. invalidator and clients may be nil when no
// remote logout or client cache exists (tests, first login).
func NewPersister(store *Store, invalidator Invalidator, identities *gocache.Cache, clients ClientResetter) *Persister {
	return &Persister{
		store:       store,
		invalidator: invalidator,
		identities:  identities,
		clients:     clients,
	}
}

// Replace installs the new token set, in order and without interleaving:
//
//  1. invalidate the previous session on the server (best-effort),
//  2. flush the identity/response cache so no stale identity is served,
//  3. write the new session durably,
//  4. reset the cached API client.
//
// Only step 3 can fail the operation; a failed remote logout must not block
// a fresh login.
func (p *Persister) Replace(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("refusing to persist an empty token set")
	}

	if prev := p.store.Current(); prev != nil && p.invalidator != nil {
		if err := p.invalidator.InvalidateSession(ctx); err != nil {
			logging.Warn("Session", "Could not invalidate previous session: %v", err)
		}
	}

	if p.identities != nil {
		p.identities.Flush()
	}

	sess := &Session{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		RefreshToken: token.RefreshToken,
		CreatedAt:    time.Now(),
	}
	if err := p.store.Write(sess); err != nil {
		return err
	}

	if p.clients != nil {
		p.clients.Reset()
	}
	return nil
}
