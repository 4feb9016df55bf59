// Package terminal puts the controlling terminal into cbreak mode and
// exposes stdin/stdout as relay streams.
//
// Cbreak mode clears ICANON and ECHO and asks for byte-at-a-time reads
// (VMIN=1, VTIME=0).  Output post-processing, CR-to-NL input mapping
// and signal keys stay on: "\n" still reaches the screen as CRLF, Enter
// still arrives as "\n", and Ctrl-C still raises SIGINT.
//
// The mode is acquired in [Open] and released by [Terminal.Restore],
// which runs at most once no matter how many exit paths call it.
// When stdin is not a terminal (a pipe in tests or scripts) the
// attributes are left alone and Restore has nothing to undo.
package terminal

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/term"

	"ctyrelay/internal/stream"
)

// Terminal owns the cbreak state of one file descriptor.
type Terminal struct {
	in     *os.File
	out    *os.File
	fd     int
	saved  *savedState
	input  *stream.Stream
	output *stream.Stream

	once       sync.Once
	restored   atomic.Bool
	restoreErr error
}

// Open captures the current attributes of in and switches it to cbreak
// mode.  The caller must arrange for Restore to run on every exit path,
// normally with a defer placed right after a successful Open.
func Open(in, out *os.File) (*Terminal, error) {
	t := &Terminal{
		in:     in,
		out:    out,
		fd:     int(in.Fd()),
		input:  stream.NewReader(nopCloser{in}),
		output: stream.NewWriter(nopCloser{out}),
	}

	if !term.IsTerminal(t.fd) {
		return t, nil
	}

	saved, err := makeCbreak(t.fd)
	if err != nil {
		return nil, fmt.Errorf("cbreak mode on fd %d: %w", t.fd, err)
	}
	t.saved = saved
	return t, nil
}

// Input returns the stream of bytes typed by the operator.
func (t *Terminal) Input() *stream.Stream { return t.input }

// Output returns the stream written to the operator's screen.
func (t *Terminal) Output() *stream.Stream { return t.output }

// IsRaw reports whether Open changed the terminal attributes and they
// have not been restored yet.
func (t *Terminal) IsRaw() bool {
	return t.saved != nil && !t.restored.Load()
}

// Restore puts back the attributes captured by Open.  Only the first
// call does any work; later calls return the first call's result.
func (t *Terminal) Restore() error {
	t.once.Do(func() {
		if t.saved == nil {
			return
		}
		t.restored.Store(true)
		if err := restoreState(t.fd, t.saved); err != nil {
			t.restoreErr = fmt.Errorf("restore fd %d: %w", t.fd, err)
		}
	})
	return t.restoreErr
}

// nopCloser hides Close so that tearing down a stream never closes the
// process's stdin or stdout.
type nopCloser struct{ f *os.File }

func (n nopCloser) Read(p []byte) (int, error)  { return n.f.Read(p) }
func (n nopCloser) Write(p []byte) (int, error) { return n.f.Write(p) }
