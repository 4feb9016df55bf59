package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// TLSDialer negotiates TLS over a connection obtained from Base.
//
// The console presents a self-signed certificate that changes with the
// device, so the peer certificate is not verified.  ServerName is sent
// as SNI only.
type TLSDialer struct {
	Base       Dialer
	ServerName string
	Timeout    time.Duration // handshake timeout (0 = none beyond ctx)
}

// Dial connects with Base and completes the TLS handshake.  On any
// failure the underlying connection is closed.
func (d *TLSDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	raw, err := d.Base.Dial(ctx, network, address)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		//nolint:gosec // console certificates are self-signed and unverifiable
		InsecureSkipVerify: true,
		ServerName:         d.ServerName,
		MinVersion:         tls.VersionTLS12,
	}

	hsCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		hsCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(hsCtx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return conn, nil
}

// Close releases the base dialer.
func (d *TLSDialer) Close() error { return d.Base.Close() }
