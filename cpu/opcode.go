package cpu

import (
	"fmt"
)

// CodeOp is the operation selected by the top 4 bits of an instruction.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_BR   = CodeOp(0x0) // br
	OP_ADD  = CodeOp(0x1) // add
	OP_LD   = CodeOp(0x2) // ld
	OP_ST   = CodeOp(0x3) // st
	OP_JSR  = CodeOp(0x4) // jsr
	OP_AND  = CodeOp(0x5) // and
	OP_LDR  = CodeOp(0x6) // ldr
	OP_STR  = CodeOp(0x7) // str
	OP_RTI  = CodeOp(0x8) // rti
	OP_NOT  = CodeOp(0x9) // not
	OP_LDI  = CodeOp(0xa) // ldi
	OP_STI  = CodeOp(0xb) // sti
	OP_JMP  = CodeOp(0xc) // jmp
	OP_RES  = CodeOp(0xd) // res
	OP_LEA  = CodeOp(0xe) // lea
	OP_TRAP = CodeOp(0xf) // trap
)

// CodeCond is a set of condition flags, as held in the COND register
// or requested by a BR instruction.
type CodeCond int

//go:generate go tool stringer -linecomment -type=CodeCond
const (
	COND_NONE = CodeCond(0b000) // -
	COND_P    = CodeCond(0b001) // p
	COND_Z    = CodeCond(0b010) // z
	COND_ZP   = CodeCond(0b011) // zp
	COND_N    = CodeCond(0b100) // n
	COND_NP   = CodeCond(0b101) // np
	COND_NZ   = CodeCond(0b110) // nz
	COND_NZP  = CodeCond(0b111) // nzp
)

// CodeReg is a general purpose register index.
type CodeReg int

//go:generate go tool stringer -linecomment -type=CodeReg
const (
	REG_R0 = CodeReg(0) // r0
	REG_R1 = CodeReg(1) // r1
	REG_R2 = CodeReg(2) // r2
	REG_R3 = CodeReg(3) // r3
	REG_R4 = CodeReg(4) // r4
	REG_R5 = CodeReg(5) // r5
	REG_R6 = CodeReg(6) // r6
	REG_R7 = CodeReg(7) // r7
)

// CodeTrap is a trap vector, the low byte of a TRAP instruction.
type CodeTrap int

//go:generate go tool stringer -linecomment -type=CodeTrap
const (
	TRAP_GETC  = CodeTrap(0x20) // getc
	TRAP_OUT   = CodeTrap(0x21) // out
	TRAP_PUTS  = CodeTrap(0x22) // puts
	TRAP_IN    = CodeTrap(0x23) // in
	TRAP_PUTSP = CodeTrap(0x24) // putsp
	TRAP_HALT  = CodeTrap(0x25) // halt
)

// Opcode represents a line of assembled code with its source location and generated instructions.
type Opcode struct {
	LineNo    int      // Source line number.
	Ip        int      // Address of the first generated word.
	Words     []string // Source words, after equate expansion.
	Codes     []Code   // Generated words.
	LinkLabel string   // Label to resolve into the last generated word.
	LinkBits  int      // Width of the PC-relative field to link, or 0 for a whole word.
}

// Code is a single 16-bit instruction word.
type Code uint16

// SignExtend extends the low 'bits' of value to a 16-bit two's complement word.
func SignExtend(value uint16, bits uint) uint16 {
	value &= (1 << bits) - 1
	if (value>>(bits-1))&1 != 0 {
		value |= 0xffff << bits
	}
	return value
}

// makeOp creates an instruction word for the operation.
func makeOp(op CodeOp, fields uint16) Code {
	return Code((uint16(op) << 12) | (fields & 0x0fff))
}

// MakeCodeAlu creates a register mode ADD or AND instruction.
func MakeCodeAlu(op CodeOp, dr, sr1, sr2 CodeReg) Code {
	return makeOp(op, (uint16(dr)&7)<<9|(uint16(sr1)&7)<<6|(uint16(sr2)&7))
}

// MakeCodeAluImm creates an immediate mode ADD or AND instruction.
func MakeCodeAluImm(op CodeOp, dr, sr1 CodeReg, imm5 int) Code {
	return makeOp(op, (uint16(dr)&7)<<9|(uint16(sr1)&7)<<6|(1<<5)|(uint16(imm5)&0x1f))
}

// MakeCodeNot creates a NOT instruction.
func MakeCodeNot(dr, sr CodeReg) Code {
	return makeOp(OP_NOT, (uint16(dr)&7)<<9|(uint16(sr)&7)<<6|0x3f)
}

// MakeCodeBr creates a conditional branch.
func MakeCodeBr(nzp CodeCond, offset9 int) Code {
	return makeOp(OP_BR, (uint16(nzp)&7)<<9|(uint16(offset9)&0x1ff))
}

// MakeCodeJmp creates a jump through a base register. JMP R7 is RET.
func MakeCodeJmp(base CodeReg) Code {
	return makeOp(OP_JMP, (uint16(base)&7)<<6)
}

// MakeCodeJsr creates a PC-relative subroutine call.
func MakeCodeJsr(offset11 int) Code {
	return makeOp(OP_JSR, (1<<11)|(uint16(offset11)&0x7ff))
}

// MakeCodeJsrr creates a subroutine call through a base register.
func MakeCodeJsrr(base CodeReg) Code {
	return makeOp(OP_JSR, (uint16(base)&7)<<6)
}

// MakeCodePcRel creates a PC-relative LD, LDI, LEA, ST, or STI instruction.
func MakeCodePcRel(op CodeOp, reg CodeReg, offset9 int) Code {
	return makeOp(op, (uint16(reg)&7)<<9|(uint16(offset9)&0x1ff))
}

// MakeCodeBase creates a base+offset LDR or STR instruction.
func MakeCodeBase(op CodeOp, reg, base CodeReg, offset6 int) Code {
	return makeOp(op, (uint16(reg)&7)<<9|(uint16(base)&7)<<6|(uint16(offset6)&0x3f))
}

// MakeCodeTrap creates a TRAP instruction.
func MakeCodeTrap(vector CodeTrap) Code {
	return makeOp(OP_TRAP, uint16(vector)&0xff)
}

// Op returns the operation from the instruction word.
func (code Code) Op() CodeOp {
	return CodeOp((uint16(code) >> 12) & 0xf)
}

// AluDecode decodes an ADD or AND instruction. When imm is set, arg is
// the sign extended immediate, otherwise it is the SR2 register index.
func (code Code) AluDecode() (dr, sr1 CodeReg, imm bool, arg uint16) {
	word := uint16(code)
	dr = CodeReg((word >> 9) & 0x7)
	sr1 = CodeReg((word >> 6) & 0x7)
	imm = ((word >> 5) & 0x1) != 0
	if imm {
		arg = SignExtend(word, 5)
	} else {
		arg = word & 0x7
	}
	return
}

// NotDecode decodes a NOT instruction.
func (code Code) NotDecode() (dr, sr CodeReg) {
	word := uint16(code)
	dr = CodeReg((word >> 9) & 0x7)
	sr = CodeReg((word >> 6) & 0x7)
	return
}

// BrDecode decodes a BR instruction.
func (code Code) BrDecode() (nzp CodeCond, offset uint16) {
	word := uint16(code)
	nzp = CodeCond((word >> 9) & 0x7)
	offset = SignExtend(word, 9)
	return
}

// JmpDecode decodes a JMP instruction.
func (code Code) JmpDecode() (base CodeReg) {
	return CodeReg((uint16(code) >> 6) & 0x7)
}

// JsrDecode decodes a JSR or JSRR instruction.
func (code Code) JsrDecode() (long bool, base CodeReg, offset uint16) {
	word := uint16(code)
	long = ((word >> 11) & 0x1) != 0
	base = CodeReg((word >> 6) & 0x7)
	offset = SignExtend(word, 11)
	return
}

// PcRelDecode decodes a LD, LDI, LEA, ST, or STI instruction.
func (code Code) PcRelDecode() (reg CodeReg, offset uint16) {
	word := uint16(code)
	reg = CodeReg((word >> 9) & 0x7)
	offset = SignExtend(word, 9)
	return
}

// BaseDecode decodes a LDR or STR instruction.
func (code Code) BaseDecode() (reg, base CodeReg, offset uint16) {
	word := uint16(code)
	reg = CodeReg((word >> 9) & 0x7)
	base = CodeReg((word >> 6) & 0x7)
	offset = SignExtend(word, 6)
	return
}

// TrapDecode decodes a TRAP instruction.
func (code Code) TrapDecode() (vector CodeTrap) {
	return CodeTrap(uint16(code) & 0xff)
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	op := code.Op()

	switch op {
	case OP_ADD, OP_AND:
		dr, sr1, imm, arg := code.AluDecode()
		if imm {
			out = fmt.Sprintf("%v %v, %v, #%d", op, dr, sr1, int16(arg))
		} else {
			out = fmt.Sprintf("%v %v, %v, %v", op, dr, sr1, CodeReg(arg))
		}
	case OP_NOT:
		dr, sr := code.NotDecode()
		out = fmt.Sprintf("%v %v, %v", op, dr, sr)
	case OP_BR:
		nzp, offset := code.BrDecode()
		out = fmt.Sprintf("%v%v #%d", op, nzp, int16(offset))
	case OP_JMP:
		base := code.JmpDecode()
		if base == REG_R7 {
			out = "ret"
		} else {
			out = fmt.Sprintf("%v %v", op, base)
		}
	case OP_JSR:
		long, base, offset := code.JsrDecode()
		if long {
			out = fmt.Sprintf("%v #%d", op, int16(offset))
		} else {
			out = fmt.Sprintf("jsrr %v", base)
		}
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		reg, offset := code.PcRelDecode()
		out = fmt.Sprintf("%v %v, #%d", op, reg, int16(offset))
	case OP_LDR, OP_STR:
		reg, base, offset := code.BaseDecode()
		out = fmt.Sprintf("%v %v, %v, #%d", op, reg, base, int16(offset))
	case OP_TRAP:
		out = fmt.Sprintf("%v %v", op, code.TrapDecode())
	default:
		out = fmt.Sprintf("%v 0x%04x", op, uint16(code))
	}

	return
}
