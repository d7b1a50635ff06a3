package io

import (
	"io"
)

// Tape provides keys from a byte stream, such as a file or a pipe.
// Reads block on the underlying reader; the end of the stream is sticky.
type Tape struct {
	Input io.Reader

	ended bool
}

var _ Poller = (*Tape)(nil)

// Poll reads the next key from the input stream.
func (tc *Tape) Poll() (key byte, ok bool) {
	if tc.ended || tc.Input == nil {
		return
	}

	var one [1]byte
	for {
		n, err := tc.Input.Read(one[:])
		if n == 1 {
			return one[0], true
		}
		if err != nil {
			tc.ended = true
			return
		}
	}
}

// Ended reports if the input stream has been exhausted.
func (tc *Tape) Ended() bool {
	return tc.ended || tc.Input == nil
}
