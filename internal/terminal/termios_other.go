//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package terminal

import "golang.org/x/term"

// Without termios the closest mode available is full raw.
type savedState struct {
	state *term.State
}

func makeCbreak(fd int) (*savedState, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &savedState{state: state}, nil
}

func restoreState(fd int, s *savedState) error {
	return term.Restore(fd, s.state)
}
