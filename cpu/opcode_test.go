package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignExtend(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		value    uint16
		bits     uint
		expected uint16
	}){
		{0x0f, 5, 0x000f},
		{0x10, 5, 0xfff0},
		{0x1f, 5, 0xffff},
		{0x3f, 6, 0xffff},
		{0x20, 6, 0xffe0},
		{0x0ff, 9, 0x00ff},
		{0x100, 9, 0xff00},
		{0x1fd, 9, 0xfffd},
		{0x400, 11, 0xfc00},
		{0x3ff, 11, 0x03ff},
		{0xffe0, 5, 0x0000},
	}

	for _, entry := range table {
		assert.Equal(entry.expected, SignExtend(entry.value, entry.bits), "%#x:%d", entry.value, entry.bits)
	}
}

func TestCodeMake(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code     Code
		expected uint16
	}){
		{MakeCodeAlu(OP_ADD, REG_R2, REG_R3, REG_R4), 0x14c4},
		{MakeCodeAluImm(OP_ADD, REG_R2, REG_R3, -1), 0x14ff},
		{MakeCodeAluImm(OP_AND, REG_R0, REG_R0, 0), 0x5020},
		{MakeCodeNot(REG_R1, REG_R2), 0x92bf},
		{MakeCodeBr(COND_NZP, -3), 0x0ffd},
		{MakeCodeBr(COND_Z, 1), 0x0401},
		{MakeCodeJmp(REG_R7), 0xc1c0},
		{MakeCodeJsr(5), 0x4805},
		{MakeCodeJsrr(REG_R2), 0x4080},
		{MakeCodePcRel(OP_LEA, REG_R0, 2), 0xe002},
		{MakeCodePcRel(OP_LD, REG_R7, -256), 0x2f00},
		{MakeCodeBase(OP_LDR, REG_R1, REG_R2, -1), 0x62bf},
		{MakeCodeBase(OP_STR, REG_R0, REG_R6, 31), 0x719f},
		{MakeCodeTrap(TRAP_HALT), 0xf025},
	}

	for _, entry := range table {
		assert.Equal(entry.expected, uint16(entry.code), entry.code.String())
	}
}

func TestCodeDecode(t *testing.T) {
	assert := assert.New(t)

	dr, sr1, imm, arg := MakeCodeAluImm(OP_ADD, REG_R5, REG_R6, -16).AluDecode()
	assert.Equal(REG_R5, dr)
	assert.Equal(REG_R6, sr1)
	assert.True(imm)
	assert.Equal(uint16(0xfff0), arg)

	dr, sr1, imm, arg = MakeCodeAlu(OP_AND, REG_R1, REG_R2, REG_R3).AluDecode()
	assert.Equal(REG_R1, dr)
	assert.Equal(REG_R2, sr1)
	assert.False(imm)
	assert.Equal(uint16(REG_R3), arg)

	nzp, offset := MakeCodeBr(COND_NP, -256).BrDecode()
	assert.Equal(COND_NP, nzp)
	assert.Equal(uint16(0xff00), offset)

	long, base, offset := MakeCodeJsr(-1024).JsrDecode()
	assert.True(long)
	assert.Equal(uint16(0xfc00), offset)
	_ = base

	long, base, _ = MakeCodeJsrr(REG_R4).JsrDecode()
	assert.False(long)
	assert.Equal(REG_R4, base)

	reg, base, offset := MakeCodeBase(OP_STR, REG_R3, REG_R5, -32).BaseDecode()
	assert.Equal(REG_R3, reg)
	assert.Equal(REG_R5, base)
	assert.Equal(uint16(0xffe0), offset)

	assert.Equal(TRAP_PUTSP, MakeCodeTrap(TRAP_PUTSP).TrapDecode())
	assert.Equal(OP_RES, Code(0xd123).Op())
}

func TestCodeString(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code     Code
		expected string
	}){
		{MakeCodeAluImm(OP_ADD, REG_R2, REG_R3, -1), "add r2, r3, #-1"},
		{MakeCodeAlu(OP_AND, REG_R0, REG_R1, REG_R7), "and r0, r1, r7"},
		{MakeCodeNot(REG_R4, REG_R4), "not r4, r4"},
		{MakeCodeBr(COND_NZP, -3), "brnzp #-3"},
		{MakeCodeBr(COND_Z, 4), "brz #4"},
		{MakeCodeJmp(REG_R7), "ret"},
		{MakeCodeJmp(REG_R3), "jmp r3"},
		{MakeCodeJsr(5), "jsr #5"},
		{MakeCodeJsrr(REG_R2), "jsrr r2"},
		{MakeCodePcRel(OP_LDI, REG_R6, 10), "ldi r6, #10"},
		{MakeCodeBase(OP_LDR, REG_R1, REG_R2, -1), "ldr r1, r2, #-1"},
		{MakeCodeTrap(TRAP_HALT), "trap halt"},
		{Code(0xd000), "res 0xd000"},
	}

	for _, entry := range table {
		assert.Equal(entry.expected, entry.code.String())
	}
}
