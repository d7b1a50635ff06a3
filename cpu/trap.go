package cpu

import (
	"log"
)

// trap runs the native system routine for a trap vector.
// Input traps that find no key rewind the PC to retry the TRAP on the
// next step, and report STEP_BLOCKED.
func (cpu *Cpu) trap(vector CodeTrap) (outcome StepOutcome, err error) {
	r0 := cpu.Register[REG_R0]

	switch vector {
	case TRAP_GETC:
		if !cpu.keyReady() {
			cpu.Pc--
			outcome = STEP_BLOCKED
			return
		}
		cpu.Register[REG_R0] = cpu.Memory.Read(DEV_KBDR) & 0xff
	case TRAP_OUT:
		cpu.putc(byte(r0))
	case TRAP_PUTS:
		for n := range MEMORY_SIZE {
			word := cpu.Memory.Data[r0+uint16(n)]
			if word == 0 {
				break
			}
			cpu.putc(byte(word))
		}
	case TRAP_IN:
		if !cpu.prompted {
			for _, c := range []byte(IN_PROMPT) {
				cpu.putc(c)
			}
			cpu.prompted = true
		}
		if !cpu.keyReady() {
			cpu.Pc--
			outcome = STEP_BLOCKED
			return
		}
		cpu.prompted = false
		key := cpu.Memory.Read(DEV_KBDR) & 0xff
		cpu.putc(byte(key))
		cpu.Register[REG_R0] = key
	case TRAP_PUTSP:
	packed:
		for n := range MEMORY_SIZE {
			word := cpu.Memory.Data[r0+uint16(n)]
			for _, c := range []byte{byte(word), byte(word >> 8)} {
				if c == 0 {
					break packed
				}
				cpu.putc(c)
			}
		}
	case TRAP_HALT:
		if cpu.Verbose {
			log.Printf("cpu: halt at 0x%04x", cpu.Pc-1)
		}
		cpu.State = STATE_HALTED
		outcome = STEP_HALTED
	default:
		err = ErrUnknownTrap{Pc: cpu.Pc - 1, Vector: vector}
	}

	return
}

// keyReady polls the keyboard status register.
func (cpu *Cpu) keyReady() bool {
	return (cpu.Memory.Read(DEV_KBSR) & KBSR_READY) != 0
}

// putc sends a byte to the display.
func (cpu *Cpu) putc(c byte) {
	if cpu.Memory.Display != nil {
		cpu.Memory.Display.Send(c)
	}
}
