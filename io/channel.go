// Package io provides the memory mapped devices of the LC-3 machine.
// It includes the keyboard input queue (Keyboard), the display output
// queue (Display), and a reader backed key source (Tape).
package io

// Poller supplies host keystrokes to the Keyboard without blocking
// the simulation.
type Poller interface {
	// Poll returns the next key from the host, if one is available.
	Poll() (key byte, ok bool)
}
