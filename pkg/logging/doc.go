// Package logging provides the structured logging facade used across canopy.
//
// It wraps log/slog with a subsystem label and printf-style messages so call
// sites stay compact. Credentials (tokens, authorization codes, nonces) must
// never be passed to these functions; log only endpoints and event names.
package logging
