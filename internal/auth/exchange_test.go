package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchanger_Exchange_Success(t *testing.T) {
	var gotForm url.Values
	var gotAuthHeader string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		gotAuthHeader = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600,"refresh_token":"r1"}`))
	}))
	defer ts.Close()

	e := NewExchanger(ts.URL, "canopy-cli", false)
	token, err := e.Exchange(context.Background(), "code1", "http://127.0.0.1:5001/")
	require.NoError(t, err)

	assert.Equal(t, "abc", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, "r1", token.RefreshToken)
	assert.True(t, token.Expiry.After(time.Now()), "expiry must be in the future")

	// Public client flow: everything in the form body, no client secret,
	// no basic auth.
	assert.Empty(t, gotAuthHeader)
	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "code1", gotForm.Get("code"))
	assert.Equal(t, "canopy-cli", gotForm.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:5001/", gotForm.Get("redirect_uri"))
	assert.Empty(t, gotForm.Get("client_secret"))
}

func TestExchanger_Exchange_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer ts.Close()

	e := NewExchanger(ts.URL, "canopy-cli", false)
	_, err := e.Exchange(context.Background(), "used-code", "http://127.0.0.1:5001/")
	require.Error(t, err)

	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
	assert.Contains(t, exchangeErr.Body, "invalid_grant")
}

func TestExchanger_Exchange_UnreachableEndpoint(t *testing.T) {
	// Point at a server that is already gone.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	e := NewExchanger(ts.URL, "canopy-cli", false)
	_, err := e.Exchange(context.Background(), "code1", "http://127.0.0.1:5001/")
	require.Error(t, err)

	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Zero(t, exchangeErr.StatusCode)
}

func TestExchanger_Exchange_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	e := NewExchanger(ts.URL, "canopy-cli", false)
	_, err := e.Exchange(ctx, "code1", "http://127.0.0.1:5001/")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExchanger_AuthCodeURL(t *testing.T) {
	e := NewExchanger("https://id.example.com/token", "canopy-cli", false)

	raw := e.AuthCodeURL("https://id.example.com/authorize", "nonce123", "http://127.0.0.1:5001/")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "canopy-cli", q.Get("client_id"))
	assert.Equal(t, "nonce123", q.Get("state"))
	assert.Equal(t, "http://127.0.0.1:5001/", q.Get("redirect_uri"))
}
