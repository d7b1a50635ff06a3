package cpu

import (
	"github.com/ezrec/lc3/io"
)

const MEMORY_SIZE = 1 << 16 // Words of addressable memory.

// Memory map regions.
const (
	SPACE_TRAP_TABLE      = uint16(0x0000) // Trap vector table.
	SPACE_INTERRUPT_TABLE = uint16(0x0100) // Interrupt vector table.
	SPACE_SYSTEM          = uint16(0x0200) // Operating system.
	SPACE_USER            = uint16(0x3000) // User programs.
	SPACE_DEVICE          = uint16(0xfe00) // Memory mapped device registers.
)

// Memory mapped device registers.
const (
	DEV_KBSR = uint16(0xfe00) // Keyboard status.
	DEV_KBDR = uint16(0xfe02) // Keyboard data.
	DEV_DSR  = uint16(0xfe04) // Display status.
	DEV_DDR  = uint16(0xfe06) // Display data.
	DEV_MCR  = uint16(0xfffe) // Machine control.
)

const (
	KBSR_READY = uint16(1 << 15) // Key available in KBDR.
	DSR_READY  = uint16(1 << 15) // Display accepts a byte in DDR.
	MCR_CLOCK  = uint16(1 << 15) // Clock enable. Clearing it stops the machine.
)

// Memory is the 64K word address space of the machine, with the
// keyboard, display, and machine control registers mapped in.
type Memory struct {
	Data     [MEMORY_SIZE]uint16 // Backing store.
	Keyboard *io.Keyboard        // Keyboard device, may be nil.
	Display  *io.Display         // Display device, may be nil.
}

// Reset clears the backing store and starts the machine clock.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
	mem.Data[DEV_MCR] = MCR_CLOCK
}

// Read a word. Reading KBSR polls the keyboard, and reading KBDR
// consumes the pending key, or returns 0 when there is none.
func (mem *Memory) Read(addr uint16) uint16 {
	switch addr {
	case DEV_KBSR:
		if mem.Keyboard != nil && mem.Keyboard.Ready() {
			mem.Data[DEV_KBSR] = KBSR_READY
			mem.Data[DEV_KBDR] = uint16(mem.Keyboard.Queue[0])
		} else {
			mem.Data[DEV_KBSR] = 0
		}
	case DEV_KBDR:
		if mem.Keyboard != nil {
			key, _ := mem.Keyboard.Read()
			mem.Data[DEV_KBDR] = uint16(key)
		} else {
			mem.Data[DEV_KBDR] = 0
		}
		mem.Data[DEV_KBSR] = 0
	case DEV_DSR:
		mem.Data[DEV_DSR] = DSR_READY
	}

	return mem.Data[addr]
}

// Write a word. Writes to the keyboard and display status registers
// are ignored, and writing DDR sends the low byte to the display.
func (mem *Memory) Write(addr uint16, value uint16) {
	switch addr {
	case DEV_KBSR, DEV_KBDR, DEV_DSR:
		return
	case DEV_DDR:
		if mem.Display != nil {
			mem.Display.Send(byte(value))
		}
	}

	mem.Data[addr] = value
}

// Stopped reports if the program has cleared the MCR clock bit.
func (mem *Memory) Stopped() bool {
	return (mem.Data[DEV_MCR] & MCR_CLOCK) == 0
}

// Load copies words into memory starting at addr, without device side effects.
func (mem *Memory) Load(addr uint16, words []uint16) {
	for _, word := range words {
		mem.Data[addr] = word
		addr++
	}
}

// Slice returns a copy of count words starting at start, wrapping at
// the end of the address space.
func (mem *Memory) Slice(start uint16, count int) (words []uint16) {
	if count <= 0 {
		return
	}

	words = make([]uint16, count)
	for n := range words {
		words[n] = mem.Data[start+uint16(n)]
	}

	return
}
