package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"ctyrelay/internal/testutil"
	"ctyrelay/tunnel"
	"ctyrelay/util"
)

// TestTCPDialer_Connect verifies that TCPDialer can reach a local
// TCP server and exchange data.
func TestTCPDialer_Connect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// Server: accept, send greeting, close.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from server\n")) //nolint:errcheck
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}
	ctx := context.Background()

	conn, err := d.Dial(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "hello from server\n" {
		t.Errorf("got %q, want %q", got, "hello from server\n")
	}
}

// TestTCPDialer_ContextCancel verifies that a cancelled context stops the dial.
func TestTCPDialer_ContextCancel(t *testing.T) {
	d := &TCPDialer{Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := d.Dial(ctx, "tcp", "127.0.0.1:1")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// TestTCPDialer_Close verifies Close is a no-op and returns nil.
func TestTCPDialer_Close(t *testing.T) {
	d := &TCPDialer{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// TestTLSDialer_SelfSigned verifies that an unverifiable certificate is
// accepted and data flows over the session.
func TestTLSDialer_SelfSigned(t *testing.T) {
	ln := testutil.TLSListener(t)
	testutil.AcceptOne(ln, func(c net.Conn) {
		c.Write([]byte("cryptech>\r\n")) //nolint:errcheck
	})

	d := &TLSDialer{Base: &TCPDialer{Timeout: 2 * time.Second}, Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, ok := conn.(*tls.Conn); !ok {
		t.Fatalf("conn is %T, want *tls.Conn", conn)
	}

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "cryptech>\r\n" {
		t.Errorf("got %q", got)
	}
}

// TestTLSDialer_ServerName verifies the SNI value reaches the server.
func TestTLSDialer_ServerName(t *testing.T) {
	gotSNI := make(chan string, 1)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{testutil.SelfSigned(t)},
		GetConfigForClient: func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			gotSNI <- hello.ServerName
			return nil, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	testutil.AcceptOne(ln, func(net.Conn) {})

	d := &TLSDialer{Base: &TCPDialer{Timeout: 2 * time.Second}, ServerName: "dks-hsm"}
	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	select {
	case sni := <-gotSNI:
		if sni != "dks-hsm" {
			t.Errorf("SNI = %q, want %q", sni, "dks-hsm")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a ClientHello")
	}
}

// TestTLSDialer_PlainServer verifies a peer that does not speak TLS is
// reported as a handshake failure.
func TestTLSDialer_PlainServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("not tls\r\n")) //nolint:errcheck
		conn.Close()
	}()

	d := &TLSDialer{Base: &TCPDialer{Timeout: 2 * time.Second}, Timeout: 2 * time.Second}
	if _, err := d.Dial(context.Background(), "tcp", ln.Addr().String()); err == nil {
		t.Fatal("expected handshake error")
	}
}

// TestTLSDialer_Refused verifies a TCP failure surfaces unchanged.
func TestTLSDialer_Refused(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}

	d := &TLSDialer{Base: &TCPDialer{Timeout: time.Second}}
	_, err = d.Dial(context.Background(), "tcp", util.FormatAddr("127.0.0.1", port))
	if err == nil {
		t.Fatal("expected dial error")
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("err = %T %v, want *net.OpError", err, err)
	}
}

// TestSSHDialer_TLSOverJump verifies the console TLS session can ride an
// SSH direct-tcpip channel, with the tunnel set up on first Dial.
func TestSSHDialer_TLSOverJump(t *testing.T) {
	ln := testutil.TLSListener(t)
	testutil.AcceptOne(ln, func(c net.Conn) {
		c.Write([]byte("cryptech>\r\n")) //nolint:errcheck
	})
	j := testutil.StartJumpHost(t, "secret")

	jump := NewSSHDialer(&tunnel.SSHConfig{
		User:         "ops",
		Host:         j.Host,
		Port:         j.Port,
		PromptPass:   true,
		ConnTimeout:  2 * time.Second,
		ReadPassword: func() ([]byte, error) { return []byte("secret"), nil },
	}, util.NewLogger(0))
	d := &TLSDialer{Base: jump, Timeout: 2 * time.Second}
	defer d.Close()

	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 11)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "cryptech>\r\n" {
		t.Errorf("got %q", buf)
	}
}

// TestSSHDialer_AuthFailure verifies a rejected jump host login surfaces
// from Dial and leaves nothing connected.
func TestSSHDialer_AuthFailure(t *testing.T) {
	j := testutil.StartJumpHost(t, "secret")

	d := NewSSHDialer(&tunnel.SSHConfig{
		Host:         j.Host,
		Port:         j.Port,
		PromptPass:   true,
		ConnTimeout:  2 * time.Second,
		ReadPassword: func() ([]byte, error) { return []byte("wrong"), nil },
	}, util.NewLogger(0))

	if _, err := d.Dial(context.Background(), "tcp", "127.0.0.1:8081"); err == nil {
		t.Fatal("expected auth failure")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
