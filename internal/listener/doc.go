// Package listener is the child-process side of canopy's browser login.
//
// The CLI re-executes its own binary with the hidden auth-listener command,
// which runs this package's Server: a one-shot HTTP listener on the loopback
// interface that accepts the browser redirect, validates the echoed state
// against the nonce from its environment, and atomically writes the
// authorization code into the handoff file owned by the parent.
package listener
