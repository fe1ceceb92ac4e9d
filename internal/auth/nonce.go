package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// nonceBytes is the entropy of the state nonce (256 bits).
const nonceBytes = 32

// GenerateNonce generates the random state value for one login attempt.
// The nonce is sent in the authorization request and must be echoed back
// unchanged in the browser redirect; the listener rejects callbacks carrying
// any other value. It is never persisted and is discarded when the flow ends.
func GenerateNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
