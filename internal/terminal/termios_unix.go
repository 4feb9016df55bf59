//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package terminal

import "golang.org/x/sys/unix"

type savedState struct {
	termios unix.Termios
}

func makeCbreak(fd int) (*savedState, error) {
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, err
	}
	saved := &savedState{termios: *termios}

	termios.Lflag &^= unix.ICANON | unix.ECHO
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, termios); err != nil {
		return nil, err
	}
	return saved, nil
}

func restoreState(fd int, s *savedState) error {
	termios := s.termios
	return unix.IoctlSetTermios(fd, ioctlSetTermios, &termios)
}
