package auth

import (
	"fmt"
	"strings"
)

// NoPortAvailableError indicates that no port in the configured loopback
// redirect range could be bound. Not retryable: the range is fixed by the
// authorization server's redirect allow-list.
type NoPortAvailableError struct {
	// Start and End describe the scanned range (inclusive).
	Start int
	End   int
}

// Error returns a user-friendly error message with actionable guidance.
func (e *NoPortAvailableError) Error() string {
	return fmt.Sprintf(`No free port for the login redirect in range %d-%d

Another process is occupying every allow-listed loopback port. Close other
canopy login attempts or local services bound to this range and retry.`, e.Start, e.End)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *NoPortAvailableError) Is(target error) bool {
	_, ok := target.(*NoPortAvailableError)
	return ok
}

// ListenerStartError indicates the local callback listener process exited
// immediately after being started.
type ListenerStartError struct {
	// Stderr is the captured error output of the listener process.
	Stderr string
}

// Error returns a user-friendly error message including the listener output.
func (e *ListenerStartError) Error() string {
	msg := "The local login listener failed to start"
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ":\n" + s
	}
	return msg
}

// Is allows errors.Is() to work with wrapped errors.
func (e *ListenerStartError) Is(target error) bool {
	_, ok := target.(*ListenerStartError)
	return ok
}

// HandoffMissingError indicates the handoff file disappeared while waiting
// for the browser step. Distinct from "not written yet": the artifact was
// removed externally, so the attempt cannot succeed.
type HandoffMissingError struct {
	// Path is the expected location of the handoff file.
	Path string
}

// Error returns a user-friendly error message.
func (e *HandoffMissingError) Error() string {
	return fmt.Sprintf("the login handoff file vanished while waiting for the browser (%s); please retry", e.Path)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *HandoffMissingError) Is(target error) bool {
	_, ok := target.(*HandoffMissingError)
	return ok
}

// NoCodeReceivedError indicates the listener exited before the browser
// delivered an authorization code (browser window closed, state mismatch
// rejected by the listener, or listener crash).
type NoCodeReceivedError struct{}

// Error returns a user-friendly error message.
func (e *NoCodeReceivedError) Error() string {
	return "the browser window was closed before login completed; no authorization code was received"
}

// Is allows errors.Is() to work with wrapped errors.
func (e *NoCodeReceivedError) Is(target error) bool {
	_, ok := target.(*NoCodeReceivedError)
	return ok
}

// TokenExchangeError indicates the code-for-token exchange against the token
// endpoint failed. Authorization codes are single use, so the attempt is
// terminal and never retried.
type TokenExchangeError struct {
	// StatusCode is the HTTP status of the token endpoint response
	// (0 when the request never produced a response).
	StatusCode int

	// Body is the raw response body, useful for diagnosing provider errors.
	Body string

	// Reason is the underlying error, if any.
	Reason error
}

// Error returns a user-friendly error message.
func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("token exchange failed: %v", e.Reason)
}

// Unwrap returns the underlying error.
func (e *TokenExchangeError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *TokenExchangeError) Is(target error) bool {
	_, ok := target.(*TokenExchangeError)
	return ok
}

// AlreadyAuthenticatedError is a pre-flight short circuit: credentials are
// already in place and interactive login was refused or impossible.
type AlreadyAuthenticatedError struct {
	// Source names where the existing credential comes from
	// ("environment" for CANOPY_TOKEN, "session" for a stored login).
	Source string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AlreadyAuthenticatedError) Error() string {
	if e.Source == "environment" {
		return `Already authenticated via the CANOPY_TOKEN environment variable.

Unset CANOPY_TOKEN to use browser login.`
	}
	return `Already logged in.

Run 'canopy login --force' to replace the current session.`
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AlreadyAuthenticatedError) Is(target error) bool {
	_, ok := target.(*AlreadyAuthenticatedError)
	return ok
}
