package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"canopy/pkg/logging"

	"golang.org/x/oauth2"
)

// sessionFileName is the name of the session file inside the config dir.
const sessionFileName = "session.json"

// Session is the durable record of the currently active token set.
//
// SECURITY: the session file is created with 0600 permissions and token
// values are never logged; only event names and expiry times are.
type Session struct {
	// AccessToken is the OAuth access token.
	AccessToken string `json:"access_token"`

	// TokenType is typically "bearer".
	TokenType string `json:"token_type"`

	// Expiry is when the access token expires. Zero means the provider
	// did not report an expiry and the token is treated as non-expiring.
	Expiry time.Time `json:"expiry,omitempty"`

	// RefreshToken is the OAuth refresh token, if the provider issued one.
	RefreshToken string `json:"refresh_token,omitempty"`

	// CreatedAt is when the session was stored.
	CreatedAt time.Time `json:"created_at"`
}

// tokenExpiryBuffer is the margin added when checking session validity.
// This accounts for clock skew, network latency, and long-running operations.
const tokenExpiryBuffer = 60 * time.Second

// Valid reports whether the session's access token is still usable.
func (s *Session) Valid() bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	if s.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(tokenExpiryBuffer).Before(s.Expiry)
}

// ToToken converts the session to an oauth2.Token.
func (s *Session) ToToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
		RefreshToken: s.RefreshToken,
	}
}

// Store persists the single active session under the canopy config dir.
// One session exists per user profile; concurrent login attempts against the
// same profile are not supported and callers serialize writes.
type Store struct {
	mu   sync.RWMutex
	path string
}

// NewStore creates a session store rooted at the given config directory.
// The directory is created with owner-only permissions if missing.
func NewStore(configDir string) (*Store, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{path: filepath.Join(configDir, sessionFileName)}, nil
}

// Current returns the stored session, or nil if none exists or the file is
// unreadable. Expired sessions are returned as-is; callers decide whether
// validity matters (logout needs the token even when expired).
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		logging.Warn("Session", "Ignoring unreadable session file %s: %v", s.path, err)
		return nil
	}
	if sess.AccessToken == "" {
		return nil
	}
	return &sess
}

// Write persists the session atomically (temp file plus rename) with
// owner-only permissions.
func (s *Store) Write(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create session temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to restrict session permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close session temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish session file: %w", err)
	}

	// SECURITY AUDIT: session replaced; token values are never logged.
	logging.Info("Session", "SECURITY_AUDIT: session stored (token_type=%s, expiry=%s, has_refresh_token=%t)",
		sess.TokenType, formatExpiry(sess.Expiry), sess.RefreshToken != "")
	return nil
}

// Clear removes the stored session. Removing a non-existent session is not
// an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	if err == nil {
		logging.Info("Session", "SECURITY_AUDIT: session cleared")
	}
	return nil
}

// Path returns the location of the session file, for diagnostics.
func (s *Store) Path() string {
	return s.path
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.Format(time.RFC3339)
}
