// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	"github.com/ezrec/lc3/io"
)

var _emulator_defines = map[string]string{
	"TRAP_GETC":  fmt.Sprintf("0x%02x", int(cpu.TRAP_GETC)),
	"TRAP_OUT":   fmt.Sprintf("0x%02x", int(cpu.TRAP_OUT)),
	"TRAP_PUTS":  fmt.Sprintf("0x%02x", int(cpu.TRAP_PUTS)),
	"TRAP_IN":    fmt.Sprintf("0x%02x", int(cpu.TRAP_IN)),
	"TRAP_PUTSP": fmt.Sprintf("0x%02x", int(cpu.TRAP_PUTSP)),
	"TRAP_HALT":  fmt.Sprintf("0x%02x", int(cpu.TRAP_HALT)),
}

// Record describes a single completed step.
type Record struct {
	Pc      uint16          // Address of the executed instruction.
	LineNo  int             // Source line, if a listing is attached.
	Code    cpu.Code        // Executed instruction.
	Outcome cpu.StepOutcome // Result of the step.
}

// Snapshot is a read-only copy of the machine registers.
type Snapshot struct {
	Register [8]uint16
	Pc       uint16
	Cond     cpu.CodeCond
	Running  bool
	Ticks    int
	Code     cpu.Code
}

// Emulator state. CPU + memory mapped devices.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Listing of the loaded program, if assembled.

	Keyboard io.Keyboard // Keyboard input device.
	Display  io.Display  // Display output device.

	Trace func(rec Record) // If set, called after every completed step.
}

// NewEmulator creates a new emulator, halted until a program is loaded.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Program: &cpu.Program{},
	}

	emu.Cpu = cpu.NewCpu(&emu.Keyboard, &emu.Display)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Load an object image, and start execution at its origin.
// On error the machine is left unchanged.
func (emu *Emulator) Load(data []byte) (origin uint16, err error) {
	img, err := cpu.ParseImage(data)
	if err != nil {
		return
	}

	emu.Program = &cpu.Program{Origin: img.Origin}

	origin = emu.LoadImage(img)
	return
}

// LoadProgram loads an assembled program, keeping its listing for
// line number reporting.
func (emu *Emulator) LoadProgram(prog *cpu.Program) (origin uint16) {
	emu.Program = prog

	return emu.LoadImage(prog.Image())
}

// LoadImage resets the machine and devices, and loads the image.
// Pending input and undrained output are discarded.
func (emu *Emulator) LoadImage(img *cpu.Image) (origin uint16) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Keyboard.Rewind()
	emu.Display.Rewind()

	origin = emu.Cpu.Load(img)

	if emu.Verbose {
		log.Printf("emulator: loaded at 0x%04x", origin)
	}

	return
}

// LineNo returns the source line number of the instruction at the PC.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	return emu.Program.LineNo(emu.Cpu.Pc)
}

// Step performs a single instruction step.
// Fatal errors are reported once as an ErrRuntime, after which the
// machine is halted and further steps return cpu.ErrNotRunning.
func (emu *Emulator) Step() (outcome cpu.StepOutcome, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()

	outcome, err = emu.Cpu.Tick()
	if err != nil {
		if !errors.Is(err, cpu.ErrNotRunning) {
			err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
		return
	}

	if outcome != cpu.STEP_BLOCKED && emu.Trace != nil {
		emu.Trace(Record{
			Pc:      pc,
			LineNo:  lineno,
			Code:    emu.Cpu.Code,
			Outcome: outcome,
		})
	}

	return
}

// Run steps the machine until it halts, fails, or the context is done.
// When the program waits for input that has not arrived, Run returns
// ErrInputWait; the machine remains running and may be resumed.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		var outcome cpu.StepOutcome
		outcome, err = emu.Step()
		if err != nil {
			return
		}

		switch outcome {
		case cpu.STEP_HALTED:
			return
		case cpu.STEP_BLOCKED:
			err = ErrInputWait
			return
		}
	}
}

// Running returns true if the machine has not halted.
func (emu *Emulator) Running() bool {
	return emu.Cpu.State == cpu.STATE_RUNNING
}

// Snapshot returns a copy of the machine registers.
func (emu *Emulator) Snapshot() Snapshot {
	return Snapshot{
		Register: emu.Cpu.Register,
		Pc:       emu.Cpu.Pc,
		Cond:     emu.Cpu.Cond,
		Running:  emu.Running(),
		Ticks:    emu.Cpu.Ticks,
		Code:     emu.Cpu.Code,
	}
}

// ReadMemoryRange returns a copy of count words starting at start.
// Device registers are read without side effects.
func (emu *Emulator) ReadMemoryRange(start uint16, count int) []uint16 {
	return emu.Cpu.Memory.Slice(start, count)
}

// PushInput queues a key for the program.
func (emu *Emulator) PushInput(key byte) {
	emu.Keyboard.Push(key)
}

// PopOutput removes the oldest undrained output byte.
func (emu *Emulator) PopOutput() (value byte, ok bool) {
	return emu.Display.Pop()
}
