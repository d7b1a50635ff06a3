package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, program []string) (asm *Assembler, prog *Program) {
	asm = &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal(SPACE_USER, prog.Origin)

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("0x0000", asm.Equate["SPACE_TRAP_TABLE"])
	assert.Equal("0x0100", asm.Equate["SPACE_INTERRUPT_TABLE"])
	assert.Equal("0x0200", asm.Equate["SPACE_SYSTEM"])
	assert.Equal("0x3000", asm.Equate["SPACE_USER"])
	assert.Equal("0xfe00", asm.Equate["KBSR"])
	assert.Equal("0xfe06", asm.Equate["DDR"])
	assert.Equal("0xfffe", asm.Equate["MCR"])
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"ADD R1, R2, R3",
		"ADD R1, R2, #-16",
		"and r0, r0, #0",
		"NOT R4, R5",
		"BRnp #-1",
		"BR #0",
		"JMP R3",
		"RET",
		"JSR #-1024",
		"JSRR R6",
		"LD R2, #255",
		"LDI R3, #-256",
		"LDR R4, R5, #31",
		"LEA R5, x10",
		"ST R6, #1",
		"STI R7, #-2",
		"STR R0, R1, #-32",
		"TRAP x25",
		"RTI",
		"GETC",
		"OUT",
		"PUTS",
		"IN",
		"PUTSP",
		"HALT",
		".END",
	}

	_, prog := assemble(t, program)

	expected := []uint16{
		0x1283, 0x12b0, 0x5020, 0x997f,
		0x0bff, 0x0e00, 0xc0c0, 0xc1c0,
		0x4c00, 0x4180, 0x24ff, 0xa700,
		0x695f, 0xea10, 0x3c01, 0xbffe,
		0x7060, 0xf025, 0x8000,
		0xf020, 0xf021, 0xf022, 0xf023, 0xf024, 0xf025,
	}

	assert.Equal(SPACE_USER, prog.Origin)
	assert.Equal(expected, prog.Words())

	for n, op := range prog.Opcodes {
		assert.Equal(n+2, op.LineNo)
		assert.Equal(0x3000+n, op.Ip)
	}
}

func TestAssemblerLabels(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"        LEA R0, MSG        ; forward reference",
		"LOOP:   ADD R1, R1, #-1",
		"        BRp LOOP",
		"        HALT",
		"MSG     .STRINGZ \"Hi\"",
		"PTR     .FILL MSG",
		"BUF     .BLKW 2",
		"        JSR LOOP",
		"        .FILL #-1",
		".END",
		"        ADD R0, R0, R0",
	}

	asm, prog := assemble(t, program)

	assert.Equal(0x3001, asm.Label["LOOP"])
	assert.Equal(0x3004, asm.Label["MSG"])
	assert.Equal(0x3007, asm.Label["PTR"])
	assert.Equal(0x3008, asm.Label["BUF"])

	expected := []uint16{
		0xe003, 0x127f, 0x03fe, 0xf025,
		'H', 'i', 0,
		0x3004,
		0, 0,
		0x4ff6,
		0xffff,
	}
	assert.Equal(expected, prog.Words())

	assert.Equal(6, prog.LineNo(0x3006))
	assert.Equal(10, prog.LineNo(0x300b))
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".equ COUNT #5",
		".equ TWICE $(COUNT * 2)",
		".ORIG $(SPACE_USER + 0x10)",
		"ADD R0, R0, COUNT",
		"ADD R1, R1, #$(TWICE - 11)",
		".FILL $(LINENO)",
		".FILL 'A'",
		".FILL ';' ; semicolon",
		".FILL KBSR",
		".FILL '\\n'",
	}

	asm, prog := assemble(t, program)

	assert.Equal("10", asm.Equate["TWICE"])
	assert.Equal(uint16(0x3010), prog.Origin)
	assert.Equal([]uint16{0x1025, 0x127f, 6, 'A', ';', DEV_KBSR, '\n'}, prog.Words())
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("START", "x4000")
	asm.Predefine("VALUE", "#3")
	asm.Predefine("VALUE", "#4")

	program := []string{
		".ORIG START",
		"ADD R0, R0, VALUE",
		"AND R1, R1, $(VALUE - 4)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	assert.Equal(uint16(0x4000), prog.Origin)
	assert.Equal([]uint16{0x1024, 0x5260}, prog.Words())
}

func TestAssemblerStrings(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		".STRINGZ \"a;b, c\\n\"",
		".STRINGZ \"'x'\"",
		".STRINGZ \"\"",
	}

	_, prog := assemble(t, program)

	assert.Equal([]uint16{
		'a', ';', 'b', ',', ' ', 'c', '\n', 0,
		'\'', 'x', '\'', 0,
		0,
	}, prog.Words())
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		".macro COUNTDOWN reg n",
		"        AND reg, reg, #0",
		"        ADD reg, reg, n",
		"@loop   ADD reg, reg, #-1",
		"        BRp @loop",
		".endm",
		"        COUNTDOWN R1 #3",
		"        COUNTDOWN R2 #2",
		"        HALT",
	}

	asm, prog := assemble(t, program)

	assert.Equal(0x3002, asm.Label["COUNTDOWN_1_loop"])
	assert.Equal(0x3006, asm.Label["COUNTDOWN_2_loop"])

	expected := []uint16{
		0x5260, 0x1263, 0x127f, 0x03fe,
		0x54a0, 0x14a2, 0x14bf, 0x03fe,
		0xf025,
	}
	assert.Equal(expected, prog.Words())

	// Macro arguments do not leak out of the expansion.
	_, ok := asm.Equate["reg"]
	assert.False(ok)

	// Expanded lines report their location in the macro body.
	assert.Equal(5, prog.LineNo(0x3006))
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		lineno  int
		err     error
	}){
		{"orig missing", []string{"ADD R0, R0, R0"}, 1, ErrOrigMissing},
		{"orig duplicate", []string{".ORIG x3000", ".ORIG x4000"}, 2, ErrOrigDuplicate},
		{"label missing", []string{".ORIG x3000", "BR MISSING"}, 2, ErrLabelMissing("MISSING")},
		{"label duplicate", []string{".ORIG x3000", "A ADD R0, R0, R0", "A ADD R0, R0, R0"}, 3, ErrLabelDuplicate},
		{"value missing", []string{".ORIG x3000", "ADD R0, R0"}, 2, ErrOpcodeValueMissing},
		{"extra args", []string{".ORIG x3000", "NOT R0, R1, R2"}, 2, ErrOpcodeExtraArgs},
		{"register", []string{".ORIG x3000", "NOT R8, R1"}, 2, ErrRegisterInvalid},
		{"instruction", []string{".ORIG x3000", "FOO: FROB R0"}, 2, ErrInstructionInvalid},
		{"string", []string{".ORIG x3000", ".STRINGZ Hi"}, 2, ErrStringSyntax},
		{"equ duplicate", []string{".equ A 1", ".equ A 2"}, 2, ErrEquateDuplicate},
		{"equ syntax", []string{".equ A"}, 1, ErrEquateSyntax},
		{"macro lonely", []string{".macro M", "ADD R0, R0, R0"}, 2, ErrMacroLonely},
		{"endm lonely", []string{".endm"}, 1, ErrMacroLonelyEndm},
		{"macro nesting", []string{".macro M", ".macro N"}, 2, ErrMacroNesting},
		{"macro args", []string{".ORIG x3000", ".macro M a", "ADD R0, R0, a", ".endm", "M"}, 5, ErrMacroSyntax},
		{"overflow", []string{".ORIG xFFFF", ".BLKW 2"}, 2, ErrImageOverflow},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
		assert.ErrorIs(err, entry.err, entry.name)

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.name) {
			assert.Equal(entry.lineno, syntax.LineNo, entry.name)
		}
	}
}

func TestAssemblerRange(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		value   int
		bits    int
	}){
		{"imm5", []string{".ORIG x3000", "ADD R0, R0, #16"}, 16, 5},
		{"imm5 negative", []string{".ORIG x3000", "AND R0, R0, #-17"}, -17, 5},
		{"offset6", []string{".ORIG x3000", "LDR R0, R1, #32"}, 32, 6},
		{"offset9", []string{".ORIG x3000", "BR #256"}, 256, 9},
		{"fill", []string{".ORIG x3000", ".FILL x10000"}, 0x10000, 16},
		{"trap", []string{".ORIG x3000", "TRAP x100"}, 0x100, 8},
		{"label", []string{".ORIG x3000", "LD R0, FAR", ".BLKW 300", "FAR .FILL 0"}, 300, 9},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))

		var rangeErr ErrRange
		if assert.True(errors.As(err, &rangeErr), entry.name) {
			assert.Equal(entry.value, rangeErr.Value, entry.name)
			assert.Equal(entry.bits, rangeErr.Bits, entry.name)
		}
	}
}

func TestAssemblerRun(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"        LEA R0, HELLO",
		"        PUTS",
		"        LD R1, COUNT",
		"LOOP    ADD R1, R1, #-1",
		"        BRp LOOP",
		"        HALT",
		"HELLO   .STRINGZ \"Hello\"",
		"COUNT   .FILL #4",
	}

	_, prog := assemble(t, program)

	cpu, _, display := newTestCpu()
	cpu.Load(prog.Image())

	var err error
	outcome := STEP_CONTINUED
	for outcome != STEP_HALTED {
		outcome, err = cpu.Tick()
		if !assert.NoError(err) {
			break
		}
	}

	assert.Equal("Hello", string(display.Queue))
	assert.Equal(uint16(0), cpu.Register[REG_R1])
	assert.Equal(12, cpu.Ticks)
}
