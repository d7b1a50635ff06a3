package io

import (
	"errors"
	"io"
)

// Display is the display device behind the DSR/DDR registers and the
// output traps. Bytes are written through to Output when it is set,
// otherwise they are queued for the host to drain.
type Display struct {
	Output io.Writer // Optional host output.
	Queue  []byte    // Undrained output, oldest first.
	Sent   int       // Total bytes sent since the last rewind.

	err error
}

// Rewind discards queued output and the sticky write error.
func (dp *Display) Rewind() {
	dp.Queue = nil
	dp.Sent = 0
	dp.err = nil
}

// Send outputs a single byte.
func (dp *Display) Send(value byte) {
	dp.Sent++

	if dp.Output == nil {
		dp.Queue = append(dp.Queue, value)
		return
	}

	if dp.err != nil {
		return
	}

	_, err := dp.Output.Write([]byte{value})
	if err != nil {
		dp.err = errors.Join(ErrDisplayWrite, err)
	}
}

// Pop removes the oldest queued byte.
func (dp *Display) Pop() (value byte, ok bool) {
	if len(dp.Queue) == 0 {
		return
	}

	value = dp.Queue[0]
	dp.Queue = dp.Queue[1:]
	ok = true
	return
}

// Drain removes and returns all queued bytes.
func (dp *Display) Drain() (out []byte) {
	out = dp.Queue
	dp.Queue = nil
	return
}

// Err returns the first error from writing to Output, which also
// satisfies errors.Is(err, ErrDisplayWrite).
func (dp *Display) Err() error {
	return dp.err
}
