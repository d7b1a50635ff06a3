package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/lc3/io"
)

// CpuState is the execution state of the CPU.
type CpuState int

//go:generate go tool stringer -linecomment -type=CpuState
const (
	STATE_HALTED  = CpuState(0) // halted
	STATE_RUNNING = CpuState(1) // running
)

// StepOutcome is the result of a single CPU step.
type StepOutcome int

//go:generate go tool stringer -linecomment -type=StepOutcome
const (
	STEP_CONTINUED = StepOutcome(0) // continued
	STEP_HALTED    = StepOutcome(1) // halted
	STEP_BLOCKED   = StepOutcome(2) // blocked
)

// IN_PROMPT is written by the IN trap before reading a key.
const IN_PROMPT = "Enter a character: "

var _cpu_defines = map[string]string{
	"SPACE_TRAP_TABLE":      fmt.Sprintf("0x%04x", SPACE_TRAP_TABLE),
	"SPACE_INTERRUPT_TABLE": fmt.Sprintf("0x%04x", SPACE_INTERRUPT_TABLE),
	"SPACE_SYSTEM":          fmt.Sprintf("0x%04x", SPACE_SYSTEM),
	"SPACE_USER":            fmt.Sprintf("0x%04x", SPACE_USER),
	"SPACE_DEVICE":          fmt.Sprintf("0x%04x", SPACE_DEVICE),
	"KBSR":                  fmt.Sprintf("0x%04x", DEV_KBSR),
	"KBDR":                  fmt.Sprintf("0x%04x", DEV_KBDR),
	"DSR":                   fmt.Sprintf("0x%04x", DEV_DSR),
	"DDR":                   fmt.Sprintf("0x%04x", DEV_DDR),
	"MCR":                   fmt.Sprintf("0x%04x", DEV_MCR),
}

// Cpu is the simulation context for the LC-3 processor and its memory.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   Memory    // Address space and mapped devices.
	Register [8]uint16 // General purpose registers R0-R7.
	Pc       uint16    // Program counter.
	Cond     CodeCond  // Condition flags; exactly one of N, Z, P once loaded.
	State    CpuState  // Execution state.

	Ticks int  // Completed instructions since load.
	Code  Code // Last executed instruction.

	prompted bool // IN prompt written for the pending trap.
}

// NewCpu creates a halted CPU attached to the keyboard and display devices.
func NewCpu(keyboard *io.Keyboard, display *io.Display) (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Memory.Keyboard = keyboard
	cpu.Memory.Display = display

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc", "cond", "state",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%04X", cpu.Pc)
		case "cond":
			strval = cpu.Cond.String()
		case "state":
			strval = cpu.State.String()
		default:
			val := cpu.Register[byte(reg[1]-'0')]
			strval = fmt.Sprintf("%04X", val)
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// Reset the CPU state.
// - Clears the registers and memory.
// - Zeros the tick counter.
// - Halts the CPU until a program is loaded.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Memory.Reset()
	cpu.Pc = 0
	cpu.Cond = COND_Z
	cpu.State = STATE_HALTED
	cpu.Ticks = 0
	cpu.Code = 0
	cpu.prompted = false
}

// Load resets the CPU, copies the image into memory, and starts
// execution at the image origin.
func (cpu *Cpu) Load(img *Image) (origin uint16) {
	cpu.Reset()

	cpu.Memory.Load(img.Origin, img.Words)
	cpu.Memory.Data[DEV_MCR] |= MCR_CLOCK

	cpu.Pc = img.Origin
	cpu.State = STATE_RUNNING

	if cpu.Verbose {
		log.Printf("cpu: loaded %d words at 0x%04x", len(img.Words), img.Origin)
	}

	return img.Origin
}

// UpdateFlags sets exactly one condition flag from the sign of value.
func (cpu *Cpu) UpdateFlags(value uint16) {
	switch {
	case value == 0:
		cpu.Cond = COND_Z
	case (value >> 15) != 0:
		cpu.Cond = COND_N
	default:
		cpu.Cond = COND_P
	}
}

// Tick fetches, decodes, and executes a single instruction.
// Fatal errors halt the CPU.
func (cpu *Cpu) Tick() (outcome StepOutcome, err error) {
	if cpu.State != STATE_RUNNING {
		outcome = STEP_HALTED
		err = ErrNotRunning
		return
	}

	code := Code(cpu.Memory.Read(cpu.Pc))
	cpu.Pc++

	outcome, err = cpu.Execute(code)
	if err != nil {
		cpu.State = STATE_HALTED
		outcome = STEP_HALTED
		return
	}

	if outcome == STEP_BLOCKED {
		return
	}

	cpu.Ticks++
	cpu.Code = code

	if cpu.State == STATE_RUNNING && cpu.Memory.Stopped() {
		if cpu.Verbose {
			log.Printf("cpu: clock stopped")
		}
		cpu.State = STATE_HALTED
	}

	if cpu.State == STATE_HALTED {
		outcome = STEP_HALTED
	}

	return
}

// Execute executes a single decoded instruction. The PC must already
// be advanced past the instruction.
func (cpu *Cpu) Execute(code Code) (outcome StepOutcome, err error) {
	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.Pc-1, code)
	}

	mem := &cpu.Memory
	reg := &cpu.Register

	switch op := code.Op(); op {
	case OP_ADD, OP_AND:
		dr, sr1, imm, arg := code.AluDecode()
		value := arg
		if !imm {
			value = reg[arg]
		}
		if op == OP_ADD {
			reg[dr] = reg[sr1] + value
		} else {
			reg[dr] = reg[sr1] & value
		}
		cpu.UpdateFlags(reg[dr])
	case OP_NOT:
		dr, sr := code.NotDecode()
		reg[dr] = ^reg[sr]
		cpu.UpdateFlags(reg[dr])
	case OP_BR:
		nzp, offset := code.BrDecode()
		if (nzp & cpu.Cond) != 0 {
			cpu.Pc += offset
		}
	case OP_JMP:
		base := code.JmpDecode()
		cpu.Pc = reg[base]
	case OP_JSR:
		long, base, offset := code.JsrDecode()
		target := reg[base]
		if long {
			target = cpu.Pc + offset
		}
		reg[REG_R7] = cpu.Pc
		cpu.Pc = target
	case OP_LD:
		dr, offset := code.PcRelDecode()
		reg[dr] = mem.Read(cpu.Pc + offset)
		cpu.UpdateFlags(reg[dr])
	case OP_LDI:
		dr, offset := code.PcRelDecode()
		reg[dr] = mem.Read(mem.Read(cpu.Pc + offset))
		cpu.UpdateFlags(reg[dr])
	case OP_LDR:
		dr, base, offset := code.BaseDecode()
		reg[dr] = mem.Read(reg[base] + offset)
		cpu.UpdateFlags(reg[dr])
	case OP_LEA:
		dr, offset := code.PcRelDecode()
		reg[dr] = cpu.Pc + offset
		cpu.UpdateFlags(reg[dr])
	case OP_ST:
		sr, offset := code.PcRelDecode()
		mem.Write(cpu.Pc+offset, reg[sr])
	case OP_STI:
		sr, offset := code.PcRelDecode()
		mem.Write(mem.Read(cpu.Pc+offset), reg[sr])
	case OP_STR:
		sr, base, offset := code.BaseDecode()
		mem.Write(reg[base]+offset, reg[sr])
	case OP_TRAP:
		outcome, err = cpu.trap(code.TrapDecode())
	default:
		// OP_RTI and OP_RES have no user mode behavior.
		err = ErrIllegalOpcode{Pc: cpu.Pc - 1, Code: code}
	}

	return
}
