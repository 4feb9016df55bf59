// Package stream wraps a byte stream (a TLS connection, a terminal
// file descriptor) with the delimiter-aware and partial read operations
// used by the relay.  Every failure that means "the other end went
// away" is reported as [ncerr.ErrStreamClosed].
package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	ncerr "ctyrelay/internal/errors"
)

// DefaultChunkSize is the read-chunk size hint used when none is given.
const DefaultChunkSize = 1024

// Stream is a readable and/or writable byte stream.  Reads and writes
// may run concurrently with each other, but not with themselves.
type Stream struct {
	r      *bufio.Reader
	w      io.Writer
	c      io.Closer
	closed atomic.Bool
	once   sync.Once

	// ChunkSize is informational: callers use it as the default size
	// for ReadBytes.
	ChunkSize int
}

// New wraps a full-duplex connection.  Close closes rwc.
func New(rwc io.ReadWriteCloser) *Stream {
	return &Stream{
		r:         bufio.NewReaderSize(rwc, DefaultChunkSize),
		w:         rwc,
		c:         rwc,
		ChunkSize: DefaultChunkSize,
	}
}

// NewReader wraps a read-only source.  If r is also an io.Closer it is
// closed by Close.
func NewReader(r io.Reader) *Stream {
	s := &Stream{r: bufio.NewReaderSize(r, DefaultChunkSize), ChunkSize: DefaultChunkSize}
	if c, ok := r.(io.Closer); ok {
		s.c = c
	}
	return s
}

// NewWriter wraps a write-only sink.  If w is also an io.Closer it is
// closed by Close.
func NewWriter(w io.Writer) *Stream {
	s := &Stream{w: w, ChunkSize: DefaultChunkSize}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// ReadUntil reads until delim has been seen and returns everything up
// to and including it.  If the stream closes first the bytes read so
// far are discarded and ErrStreamClosed is returned.
func (s *Stream) ReadUntil(delim []byte) ([]byte, error) {
	if len(delim) == 0 {
		return nil, fmt.Errorf("read until: empty delimiter")
	}
	if err := s.readable(); err != nil {
		return nil, err
	}

	last := delim[len(delim)-1]
	var out []byte
	for {
		part, err := s.r.ReadBytes(last)
		out = append(out, part...)
		if err != nil {
			return nil, s.normalize(err)
		}
		if bytes.HasSuffix(out, delim) {
			return out, nil
		}
	}
}

// ReadBytes reads up to n bytes.  With partial set it returns as soon
// as at least one byte is available; otherwise it blocks until all n
// bytes have arrived.
func (s *Stream) ReadBytes(n int, partial bool) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("read bytes: invalid size %d", n)
	}
	if err := s.readable(); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	if !partial {
		if _, err := io.ReadFull(s.r, buf); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			return nil, s.normalize(err)
		}
		return buf, nil
	}

	for {
		got, err := s.r.Read(buf)
		if got > 0 {
			return buf[:got], nil
		}
		if err != nil {
			return nil, s.normalize(err)
		}
	}
}

// Write writes all of p, blocking until the transport has accepted it.
func (s *Stream) Write(p []byte) error {
	if s.w == nil {
		return fmt.Errorf("write: stream is not writable")
	}
	if s.closed.Load() {
		return ncerr.ErrStreamClosed
	}
	for len(p) > 0 {
		n, err := s.w.Write(p)
		if err != nil {
			return s.normalize(err)
		}
		if n == 0 {
			return s.normalize(io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// Close closes the underlying resource once.  Calls after the first
// return nil.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		if s.c != nil {
			err = s.c.Close()
		}
	})
	return err
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool { return s.closed.Load() }

func (s *Stream) readable() error {
	if s.r == nil {
		return fmt.Errorf("read: stream is not readable")
	}
	if s.closed.Load() {
		return ncerr.ErrStreamClosed
	}
	return nil
}

// normalize maps close-like errors to ErrStreamClosed.  A failure on a
// stream we closed ourselves is a close too, whatever the OS says.
func (s *Stream) normalize(err error) error {
	if ncerr.IsStreamClosed(err) || s.closed.Load() {
		return fmt.Errorf("%w: %v", ncerr.ErrStreamClosed, err)
	}
	return err
}
