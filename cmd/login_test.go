package cmd

import (
	"context"
	"testing"
	"time"

	"canopy/internal/auth"
	"canopy/internal/session"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoginTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

// useTempConfigDir points the command wiring at an isolated config dir for
// the duration of the test.
func useTempConfigDir(t *testing.T) string {
	t.Helper()
	prev := rootConfigPath
	dir := t.TempDir()
	rootConfigPath = dir
	t.Cleanup(func() { rootConfigPath = prev })
	return dir
}

func TestRunLogin_EnvironmentTokenBlocksBrowserLogin(t *testing.T) {
	useTempConfigDir(t)
	t.Setenv(envTokenVar, "env-token")

	err := runLogin(newLoginTestCmd(t), nil)
	require.Error(t, err)

	var already *auth.AlreadyAuthenticatedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "environment", already.Source)
	assert.Contains(t, err.Error(), envTokenVar)
}

func TestRunLogin_ValidSessionNonInteractive(t *testing.T) {
	dir := useTempConfigDir(t)
	t.Setenv(envTokenVar, "")

	store, err := session.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Write(&session.Session{
		AccessToken: "abc",
		TokenType:   "bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	// Test processes have no TTY on stdin, so the confirmation prompt is
	// skipped and the command fails fast instead of hanging.
	err = runLogin(newLoginTestCmd(t), nil)
	require.Error(t, err)

	var already *auth.AlreadyAuthenticatedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "session", already.Source)
}

func TestWorkspace_HasCredentials(t *testing.T) {
	dir := useTempConfigDir(t)
	t.Setenv(envTokenVar, "")

	ws, err := buildWorkspace()
	require.NoError(t, err)
	assert.False(t, ws.hasCredentials())

	t.Setenv(envTokenVar, "env-token")
	assert.True(t, ws.hasCredentials())

	t.Setenv(envTokenVar, "")
	store, err := session.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Write(&session.Session{
		AccessToken: "abc",
		TokenType:   "bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))
	assert.True(t, ws.hasCredentials())

	// An expired session is not a usable credential.
	require.NoError(t, store.Write(&session.Session{
		AccessToken: "abc",
		TokenType:   "bearer",
		Expiry:      time.Now().Add(-time.Hour),
	}))
	assert.False(t, ws.hasCredentials())
}
