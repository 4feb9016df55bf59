// Package transport provides abstractions for reaching the console.
// Dialers handle the "how" of the byte pipe (plain TCP, a hop through
// an SSH jump host, TLS on top of either) independent of what the
// relay does with it.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer, an SSH-tunnelled dialer that routes traffic
// through a jump host, and a TLS dialer that wraps either.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
