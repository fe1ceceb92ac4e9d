// Package auth implements canopy's browser-based login: local loopback
// capture of the OAuth2 authorization code and its exchange for a token set.
//
// The flow spawns the canopy binary itself as a short-lived HTTP listener
// child process (see internal/listener). Shared secrets reach the child
// through environment variables and the authorization code comes back
// through a one-shot file handoff, so the CLI never hosts an HTTP server
// in-process and the redirect contract survives unchanged across platforms.
//
// The pieces compose bottom-up:
//
//   - AllocatePort scans the allow-listed loopback redirect port range.
//   - Handoff is the write-once file channel between child and parent.
//   - ListenerProcess owns the child's lifecycle.
//   - Exchanger trades the captured code for tokens (public client flow).
//   - Flow is the orchestrating state machine and the only entry point the
//     rest of the CLI calls.
//
// All failures are terminal for the attempt; nothing is silently retried,
// and cleanup runs exactly once on every exit path.
package auth
