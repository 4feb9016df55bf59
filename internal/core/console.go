package core

import (
	"context"
	"fmt"
	"os"
	"time"

	ncerr "ctyrelay/internal/errors"
	"ctyrelay/internal/metrics"
	"ctyrelay/internal/relay"
	"ctyrelay/internal/session"
	"ctyrelay/internal/stream"
	"ctyrelay/internal/terminal"
	"ctyrelay/internal/transport"
	"ctyrelay/util"
)

// wakeSeq is sent after connect so the console prints a fresh prompt.
var wakeSeq = []byte("\r")

// Terminal is the operator side of a session.
type Terminal interface {
	Input() *stream.Stream
	Output() *stream.Stream
	Restore() error
}

// ConsoleMode connects to one console and relays it to the terminal
// until either side closes or ctx is cancelled.
type ConsoleMode struct {
	Dialer  transport.Dialer
	Host    string
	Port    int
	Timeout time.Duration // connect + handshake, 0 = no limit
	Wake    bool
	BufSize int // read chunk size hint for the console stream
	Handler relay.Handler
	Logger  *util.Logger
	Metrics *metrics.Collector

	// OpenTerminal defaults to cbreak mode on os.Stdin/os.Stdout.  Override
	// in tests for deterministic I/O.
	OpenTerminal func() (Terminal, error)

	// Description is printed by --dry-run.
	Description string

	sess *session.Session
}

func (m *ConsoleMode) openTerminal() (Terminal, error) {
	if m.OpenTerminal != nil {
		return m.OpenTerminal()
	}
	return terminal.Open(os.Stdin, os.Stdout)
}

// String describes what Run would do.
func (m *ConsoleMode) String() string {
	if m.Description != "" {
		return m.Description
	}
	return "console " + util.FormatAddr(m.Host, m.Port)
}

// Run opens the terminal, connects, and relays.  A connect failure is
// returned as a *ConnectionError and the session never reaches
// Running.  An interrupt at any point ends Run with a nil error.  The
// terminal is restored on every path.
func (m *ConsoleMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	term, err := m.openTerminal()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	defer term.Restore() //nolint:errcheck

	sess := session.New(m.Host, m.Port, term.Input(), term.Output(), term.Restore, m.Logger)
	m.sess = sess
	defer sess.Close() //nolint:errcheck

	if err := sess.Connecting(); err != nil {
		return err
	}

	addr := util.FormatAddr(m.Host, m.Port)
	m.Logger.Info("connecting to %s...", addr)

	dialCtx := ctx
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	conn, err := m.Dialer.Dial(dialCtx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			m.Logger.Debug("interrupted while connecting to %s", addr)
			return nil
		}
		return &ncerr.ConnectionError{Host: m.Host, Port: m.Port, Err: err}
	}

	remote := stream.New(conn)
	if m.BufSize > 0 {
		remote.ChunkSize = m.BufSize
	}
	if err := sess.Attach(remote); err != nil {
		return err
	}
	m.Logger.Info("connected TLS to %s", addr)
	m.Metrics.Connected()

	if m.Wake {
		if err := remote.Write(wakeSeq); err != nil {
			sess.Close() //nolint:errcheck
			if ncerr.IsStreamClosed(err) {
				return nil
			}
			return fmt.Errorf("wake: %w", err)
		}
	}

	handler := m.Handler
	if handler == nil {
		handler = &relay.Console{BufSize: m.BufSize, Metrics: m.Metrics}
	}
	err = handler.Handle(ctx, sess)
	if m.Logger.Enabled(util.LogDebug) {
		m.Logger.Debug("session metrics: %s", m.Metrics.JSON())
	}
	return err
}

// Session returns the session of the last Run.
func (m *ConsoleMode) Session() *session.Session { return m.sess }
