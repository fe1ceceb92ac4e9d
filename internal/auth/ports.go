package auth

import (
	"fmt"
	"net"
)

// AllocatePort scans the inclusive port range [start, end] in ascending order
// and returns the first port that can be bound on the loopback interface.
// The probe socket is released immediately; the listener process binds the
// port again for real. The window between release and re-bind is accepted:
// the range is private to login attempts and callers serialize those.
//
// The range is bounded because the authorization server allow-lists a small
// set of loopback redirect ports; arbitrary ephemeral ports are rejected.
func AllocatePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		_ = l.Close()
		return port, nil
	}
	return 0, &NoPortAvailableError{Start: start, End: end}
}
