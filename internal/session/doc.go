// Package session holds the durable login session of the canopy CLI and the
// ordered replace operation that supersedes it after a new browser login.
package session
