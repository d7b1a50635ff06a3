package cpu

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrNotRunning = errors.New(f("not running"))

	// Image errors
	ErrImageFormat   = errors.New(f("image format"))
	ErrImageEmpty    = errors.New(f("image has no origin"))
	ErrImageOdd      = errors.New(f("image has an odd byte count"))
	ErrImageOverflow = errors.New(f("image exceeds the address space"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOrigMissing        = errors.New(f(".orig missing"))
	ErrOrigDuplicate      = errors.New(f(".orig duplicated"))
	ErrStringSyntax       = errors.New(f(".stringz syntax"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrIllegalOpcode is a fatal attempt to execute an opcode with no
// defined behavior.
type ErrIllegalOpcode struct {
	Pc   uint16 // Address of the instruction.
	Code Code   // Instruction word.
}

func (err ErrIllegalOpcode) Error() string {
	return f("illegal opcode %v (0x%04x) at 0x%04x", err.Code.Op().String(), uint16(err.Code), err.Pc)
}

func (err ErrIllegalOpcode) Is(target error) (ok bool) {
	_, ok = target.(ErrIllegalOpcode)
	return
}

// ErrUnknownTrap is a fatal TRAP to an unimplemented vector.
type ErrUnknownTrap struct {
	Pc     uint16   // Address of the TRAP instruction.
	Vector CodeTrap // Requested vector.
}

func (err ErrUnknownTrap) Error() string {
	return f("unknown trap vector 0x%02x at 0x%04x", int(err.Vector), err.Pc)
}

func (err ErrUnknownTrap) Is(target error) (ok bool) {
	_, ok = target.(ErrUnknownTrap)
	return
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrRange is a value that does not fit its instruction field.
type ErrRange struct {
	Value int // Requested value.
	Bits  int // Width of the field.
}

func (err ErrRange) Error() string {
	return f("%v does not fit in %v bits", err.Value, err.Bits)
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
