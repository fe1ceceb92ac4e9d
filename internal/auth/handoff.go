package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"canopy/pkg/logging"

	"github.com/google/uuid"
)

// handoffFileName is the name of the one-shot code file inside the private
// handoff directory.
const handoffFileName = "code"

// Handoff is a filesystem-backed, one-shot, write-once channel used to pass
// the authorization code from the listener process back to the CLI.
//
// SECURITY: the directory is 0700 and the file 0600; exactly one writer (the
// listener) and one reader (this process) exist per login attempt. Once the
// file is non-empty its content is final and never changes again.
type Handoff struct {
	dir  string
	path string

	closeOnce sync.Once
}

// NewHandoff creates a fresh handoff directory and an empty code file.
// The directory lives under the OS temp dir, guaranteed writable at runtime
// regardless of how the CLI binary itself is installed.
func NewHandoff() (*Handoff, error) {
	dir, err := os.MkdirTemp("", "canopy-login-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create handoff directory: %w", err)
	}

	path := filepath.Join(dir, handoffFileName)
	if err := os.WriteFile(path, nil, 0600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to create handoff file: %w", err)
	}

	return &Handoff{dir: dir, path: path}, nil
}

// Path returns the absolute path of the handoff file, as handed to the
// listener process through its environment.
func (h *Handoff) Path() string {
	return h.path
}

// Poll reads the current content of the handoff file.
// It returns ("", nil) while the code has not been written yet, the final
// code once it has, and a HandoffMissingError if the file was removed
// externally. The two empty cases are deliberately distinguishable.
func (h *Handoff) Poll() (string, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &HandoffMissingError{Path: h.path}
		}
		return "", fmt.Errorf("failed to read handoff file: %w", err)
	}
	return string(data), nil
}

// Close removes the handoff directory recursively. It is idempotent and
// safe to call while the listener might still be writing: the listener is
// about to stop anyway, so a lost late write is irrelevant.
func (h *Handoff) Close() {
	h.closeOnce.Do(func() {
		if err := os.RemoveAll(h.dir); err != nil {
			logging.Warn("Handoff", "Failed to remove handoff directory %s: %v", h.dir, err)
		}
	})
}

// WriteHandoffFile atomically writes the authorization code to the handoff
// file at path. The write is a temp-file-plus-rename in the same directory,
// so a concurrent reader only ever observes "empty" or "final content",
// never a partial write. Called by the listener process.
func WriteHandoffFile(path, secret string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".code-*")
	if err != nil {
		return fmt.Errorf("failed to create handoff temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to restrict handoff permissions: %w", err)
	}
	if _, err := tmp.WriteString(secret); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write handoff temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close handoff temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish handoff file: %w", err)
	}
	return nil
}
