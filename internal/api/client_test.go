package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CurrentUser(t *testing.T) {
	var requests int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		assert.Equal(t, "/v2/account", r.URL.Path)
		assert.Equal(t, "Bearer token1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"jdoe","email":"jdoe@example.com"}`))
	}))
	defer ts.Close()

	identities := gocache.New(time.Minute, time.Minute)
	c := NewClient(ts.URL, "token1", false, identities)

	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)
	assert.Equal(t, "jdoe@example.com", user.Email)

	// Second lookup is served from the identity cache.
	user, err = c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)
	assert.Equal(t, int64(1), atomic.LoadInt64(&requests))
}

func TestClient_CurrentUser_NoCacheConfigured(t *testing.T) {
	var requests int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"jdoe"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "token1", false, nil)

	_, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	_, err = c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&requests))
}

func TestClient_CurrentUser_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "token1", false, nil)

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_InvalidateSession(t *testing.T) {
	var path, auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "token1", false, nil)
	require.NoError(t, c.InvalidateSession(context.Background()))
	assert.Equal(t, "/v2/auth/logout", path)
	assert.Equal(t, "Bearer token1", auth)
}

func TestClient_InvalidateSession_AlreadyGoneCountsAsSuccess(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(ts.URL, "token1", false, nil)
		assert.NoError(t, c.InvalidateSession(context.Background()), "status %d", status)
		ts.Close()
	}
}

func TestClient_InvalidateSession_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "token1", false, nil)
	err := c.InvalidateSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClientCache_GetAndReset(t *testing.T) {
	token := "token1"
	cache := NewClientCache("https://api.example.com", false, func() string { return token }, nil)

	first := cache.Get()
	assert.Same(t, first, cache.Get(), "client is reused until reset")
	assert.Equal(t, "token1", first.token)

	token = "token2"
	cache.Reset()

	second := cache.Get()
	assert.NotSame(t, first, second)
	assert.Equal(t, "token2", second.token, "rebuilt client binds to the current token")
}
