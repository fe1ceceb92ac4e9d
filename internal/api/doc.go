// Package api is the login flow's view of the Canopy control plane: the
// current-account lookup shown after login and the best-effort invalidation
// of superseded sessions. The full platform API client is out of scope here.
package api
