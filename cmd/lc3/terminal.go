package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// POLL_INTERVAL_MS bounds how long Wait sleeps between context checks.
const POLL_INTERVAL_MS = 50

// terminal is a non-blocking key source on a file descriptor. When the
// descriptor is a tty it is switched to unbuffered, non-echoing input
// for the lifetime of the terminal; signals stay enabled.
type terminal struct {
	fd    int
	saved *unix.Termios
	ended bool
}

// openTerminal prepares file for key polling.
func openTerminal(file *os.File) (tm *terminal, err error) {
	tm = &terminal{fd: int(file.Fd())}

	if !term.IsTerminal(tm.fd) {
		return
	}

	saved := &unix.Termios{}
	err = termios.Tcgetattr(file.Fd(), saved)
	if err != nil {
		return
	}

	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	err = termios.Tcsetattr(file.Fd(), termios.TCSANOW, &raw)
	if err != nil {
		return
	}

	tm.saved = saved
	return
}

// Close restores the terminal mode.
func (tm *terminal) Close() (err error) {
	if tm.saved == nil {
		return
	}

	err = termios.Tcsetattr(uintptr(tm.fd), termios.TCSANOW, tm.saved)
	tm.saved = nil
	return
}

// ready polls the descriptor for input, waiting at most timeout milliseconds.
func (tm *terminal) ready(timeout int) (ok bool, err error) {
	fds := []unix.PollFd{{Fd: int32(tm.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeout)
	if err == unix.EINTR {
		err = nil
		return
	}
	ok = n > 0
	return
}

// Poll returns a key if one is waiting, without blocking.
func (tm *terminal) Poll() (key byte, ok bool) {
	if tm.ended {
		return
	}

	waiting, err := tm.ready(0)
	if err != nil || !waiting {
		return
	}

	var buf [1]byte
	n, err := unix.Read(tm.fd, buf[:])
	if n != 1 {
		if err != unix.EAGAIN && err != unix.EINTR {
			tm.ended = true
		}
		return
	}

	key = buf[0]
	switch key {
	case '\r':
		key = '\n'
	case 0x7f:
		key = 0x08
	}

	ok = true
	return
}

// Wait blocks until a key is waiting or the context is done.
func (tm *terminal) Wait(ctx context.Context) (err error) {
	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		if tm.ended {
			err = io.EOF
			return
		}

		var ok bool
		ok, err = tm.ready(POLL_INTERVAL_MS)
		if err != nil || ok {
			return
		}
	}
}
