package cmd

import (
	"os"
	"time"

	"canopy/internal/api"
	"canopy/internal/config"
	"canopy/internal/session"

	gocache "github.com/patrickmn/go-cache"
)

// envTokenVar is the non-interactive credential: when set, commands use it
// directly and interactive login refuses to run.
const envTokenVar = "CANOPY_TOKEN"

// workspace bundles the wiring every auth-touching command needs: resolved
// configuration, the session store, the flushable identity cache, and the
// resettable API client cache. The handles are explicit so session
// replacement can invalidate exactly the right state.
type workspace struct {
	cfg        config.CanopyConfig
	store      *session.Store
	identities *gocache.Cache
	clients    *api.ClientCache
}

// buildWorkspace loads configuration and constructs the shared handles.
func buildWorkspace() (*workspace, error) {
	cfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(rootConfigPath)
	if err != nil {
		return nil, err
	}

	identities := gocache.New(5*time.Minute, 10*time.Minute)

	clients := api.NewClientCache(cfg.API.Endpoint, cfg.API.InsecureSkipTLSVerify, func() string {
		if token := os.Getenv(envTokenVar); token != "" {
			return token
		}
		if sess := store.Current(); sess != nil {
			return sess.AccessToken
		}
		return ""
	}, identities)

	return &workspace{
		cfg:        cfg,
		store:      store,
		identities: identities,
		clients:    clients,
	}, nil
}

// hasCredentials reports whether any usable credential exists, either the
// environment token or a valid stored session.
func (w *workspace) hasCredentials() bool {
	if os.Getenv(envTokenVar) != "" {
		return true
	}
	return w.store.Current().Valid()
}
