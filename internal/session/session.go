// Package session represents the single console connection of a
// ctyrelay process: the remote stream, the two terminal streams, and
// the one-way closed flag that both copy loops watch.
//
// Close is the only teardown path.  It is safe to call from both loops
// and the interrupt watcher at once; the first call closes the remote
// stream and restores the terminal, later calls do nothing.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	ncerr "ctyrelay/internal/errors"
	"ctyrelay/internal/stream"
	"ctyrelay/util"
)

// State is a step in the session lifecycle.
type State int32

const (
	StateCreated State = iota
	StateConnecting
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Session binds the console connection to the operator's terminal.
type Session struct {
	Host   string
	Port   int
	Input  *stream.Stream
	Output *stream.Stream
	Logger *util.Logger

	restore func() error

	mu     sync.Mutex
	remote *stream.Stream
	state  atomic.Int32
	closed atomic.Bool
	once   sync.Once
}

// New creates a Session in the Created state.  restore is called once
// when the session closes; pass nil when there is nothing to restore.
func New(host string, port int, input, output *stream.Stream, restore func() error, logger *util.Logger) *Session {
	return &Session{
		Host:    host,
		Port:    port,
		Input:   input,
		Output:  output,
		Logger:  logger,
		restore: restore,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Connecting moves Created → Connecting.
func (s *Session) Connecting() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ncerr.ErrStreamClosed
	}
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateConnecting)) {
		return fmt.Errorf("session: connect from state %s", s.State())
	}
	return nil
}

// Attach hands the connected remote stream to the session and moves
// Connecting → Running.  If the session was closed while connecting,
// remote is closed and ErrStreamClosed is returned.
func (s *Session) Attach(remote *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		remote.Close() //nolint:errcheck
		return ncerr.ErrStreamClosed
	}
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateRunning)) {
		return fmt.Errorf("session: attach from state %s", s.State())
	}
	s.remote = remote
	return nil
}

// Remote returns the console stream, or nil before Attach.
func (s *Session) Remote() *stream.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

// Closed reports whether Close has been called.  Once true it stays
// true.
func (s *Session) Closed() bool { return s.closed.Load() }

// Close marks the session closed, closes the remote stream to unblock
// any pending read, and restores the terminal.  Only the first call
// does anything; it returns the terminal restore error, if any.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		s.state.Store(int32(StateClosed))
		remote := s.remote
		s.mu.Unlock()

		if remote != nil {
			remote.Close() //nolint:errcheck
		}
		if s.restore != nil {
			err = s.restore()
		}
		s.Logger.Debug("session %s closed", util.FormatAddr(s.Host, s.Port))
	})
	return err
}
