// Package relay runs the two directional copy loops of a console
// session.  Each loop reads a chunk, rewrites line endings for its
// direction and forwards the result, until the session closes.
//
// Line endings are rewritten within one chunk at a time.  A "\r\n"
// split across two reads reaches the operator as "\r" then "\n".
package relay

import (
	"bytes"
	"context"
	"fmt"

	ncerr "ctyrelay/internal/errors"
	"ctyrelay/internal/metrics"
	"ctyrelay/internal/session"
	"ctyrelay/util"
)

// DefaultBufSize is the per-read chunk size of both loops.
const DefaultBufSize = 1024

// Direction-specific substitution pairs.  The console expects a bare
// CR as Enter and emits CRLF line endings.
var (
	InputFrom  = []byte("\n")
	InputTo    = []byte("\r")
	OutputFrom = []byte("\r\n")
	OutputTo   = []byte("\n")
)

// Source yields chunks of at most n bytes.
type Source interface {
	ReadBytes(n int, partial bool) ([]byte, error)
}

// Sink accepts whole chunks.
type Sink interface {
	Write(p []byte) error
}

// Closer is the part of a session a loop needs: the one-way closed
// flag and the operation that sets it.
type Closer interface {
	Close() error
	Closed() bool
}

// Translate replaces every occurrence of from in chunk with to.
// chunk is returned as is when it holds no match.
func Translate(chunk, from, to []byte) []byte {
	if len(from) == 0 || !bytes.Contains(chunk, from) {
		return chunk
	}
	return bytes.ReplaceAll(chunk, from, to)
}

// Loop copies one direction of the relay.
type Loop struct {
	Name    string
	Src     Source
	Dst     Sink
	From    []byte
	To      []byte
	BufSize int

	// Escape, when non-zero, ends the session locally.  Bytes before it
	// in the same chunk are still forwarded.
	Escape byte

	// Count is called with the size of every chunk read.
	Count  func(n int64)
	Logger *util.Logger
}

// Run loops until the session closes.  A closed stream on either end
// closes the session and is not an error.  Any other failure also
// closes the session and is returned.
func (l *Loop) Run(sess Closer) error {
	size := l.BufSize
	if size <= 0 {
		size = DefaultBufSize
	}

	for !sess.Closed() {
		chunk, err := l.Src.ReadBytes(size, true)
		if err != nil {
			return l.finish(sess, err)
		}
		if sess.Closed() {
			// Torn down while we were blocked; the chunk has nowhere
			// to go.
			return nil
		}
		if l.Count != nil {
			l.Count(int64(len(chunk)))
		}

		escaped := false
		if l.Escape != 0 {
			if i := bytes.IndexByte(chunk, l.Escape); i >= 0 {
				chunk = chunk[:i]
				escaped = true
			}
		}

		if out := Translate(chunk, l.From, l.To); len(out) > 0 {
			if err := l.Dst.Write(out); err != nil {
				return l.finish(sess, err)
			}
		}

		if escaped {
			l.Logger.Debug("%s: escape byte 0x%02x, closing", l.Name, l.Escape)
			sess.Close() //nolint:errcheck
			return nil
		}
	}
	return nil
}

func (l *Loop) finish(sess Closer, err error) error {
	sess.Close() //nolint:errcheck
	if ncerr.IsStreamClosed(err) {
		l.Logger.Debug("%s: %v", l.Name, err)
		return nil
	}
	return fmt.Errorf("%s loop: %w", l.Name, err)
}

// guard runs a loop and, if it panics, closes the session (and so
// restores the terminal) before the panic continues.
func guard(sess Closer, run func(Closer) error) error {
	defer func() {
		if r := recover(); r != nil {
			sess.Close() //nolint:errcheck
			panic(r)
		}
	}()
	return run(sess)
}

// Handler runs over an attached session until the session closes or
// ctx is cancelled.
type Handler interface {
	Handle(ctx context.Context, sess *session.Session) error
}

var _ Handler = (*Console)(nil)

// Console relays between the operator's terminal and the remote
// console held by a session.
type Console struct {
	BufSize int
	Escape  byte
	Metrics *metrics.Collector
}

// Handle starts both loops and returns as soon as the first of them
// finishes or ctx is cancelled, closing the session either way.  It
// does not wait for the other loop: the input loop may still be
// blocked reading the terminal, and it will not write once it wakes.
func (c *Console) Handle(ctx context.Context, sess *session.Session) error {
	remote := sess.Remote()
	if remote == nil {
		return ncerr.ErrNotConnected
	}

	input := &Loop{
		Name:    "input",
		Src:     sess.Input,
		Dst:     remote,
		From:    InputFrom,
		To:      InputTo,
		BufSize: c.BufSize,
		Escape:  c.Escape,
		Count:   c.Metrics.BytesSent,
		Logger:  sess.Logger,
	}
	output := &Loop{
		Name:    "output",
		Src:     remote,
		Dst:     sess.Output,
		From:    OutputFrom,
		To:      OutputTo,
		BufSize: c.BufSize,
		Count:   c.Metrics.BytesReceived,
		Logger:  sess.Logger,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- guard(sess, input.Run) }()
	go func() { errCh <- guard(sess, output.Run) }()

	select {
	case <-ctx.Done():
		sess.Close() //nolint:errcheck
		c.Metrics.Closed("interrupt")
		return nil
	case err := <-errCh:
		sess.Close() //nolint:errcheck
		if err != nil {
			c.Metrics.RecordError(err.Error())
			c.Metrics.Closed("error")
			return err
		}
		c.Metrics.Closed("stream closed")
		return nil
	}
}
