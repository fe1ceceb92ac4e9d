package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoff_LifeCycle(t *testing.T) {
	h, err := NewHandoff()
	require.NoError(t, err)
	defer h.Close()

	// Fresh handoff: file exists, empty, owner-only permissions.
	info, err := os.Stat(h.Path())
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	code, err := h.Poll()
	require.NoError(t, err)
	assert.Empty(t, code, "unwritten handoff must poll as empty")
}

func TestHandoff_SingleWriterInvariant(t *testing.T) {
	h, err := NewHandoff()
	require.NoError(t, err)
	defer h.Close()

	const secret = "authz-code-31337"
	require.NoError(t, WriteHandoffFile(h.Path(), secret))

	// Every subsequent poll observes exactly the final content.
	for i := 0; i < 5; i++ {
		code, err := h.Poll()
		require.NoError(t, err)
		assert.Equal(t, secret, code)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(h.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestHandoff_MissingIsDistinctFromEmpty(t *testing.T) {
	h, err := NewHandoff()
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, os.Remove(h.Path()))

	_, err = h.Poll()
	require.Error(t, err)

	var missing *HandoffMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, h.Path(), missing.Path)
}

func TestHandoff_CloseRemovesDirectoryAndIsIdempotent(t *testing.T) {
	h, err := NewHandoff()
	require.NoError(t, err)

	dir := filepath.Dir(h.Path())
	h.Close()

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "handoff directory must be removed")

	// Closing again, or after the directory is already gone, must not
	// panic or hang.
	h.Close()
	h.Close()
}

func TestWriteHandoffFile_LeavesNoTempDebris(t *testing.T) {
	h, err := NewHandoff()
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, WriteHandoffFile(h.Path(), "abc"))

	entries, err := os.ReadDir(filepath.Dir(h.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(h.Path()), entries[0].Name())
}
