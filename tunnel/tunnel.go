// Package tunnel carries console connections through an SSH jump host.
// The console's TLS session rides inside an SSH direct-tcpip channel,
// so the bastion never sees the console traffic in the clear.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is a connected channel to a gateway through which TCP
// connections can be opened.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the tunnel.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel.
	Close() error

	// IsAlive reports whether the gateway connection is still up.
	IsAlive() bool
}

var _ Tunnel = (*SSHTunnel)(nil)
