package emulator

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	ErrInputWait = errors.New(f("waiting for input"))
)

// ErrRuntime indicates the location of a fatal runtime error.
type ErrRuntime struct {
	Pc     uint16 // Address of the failing instruction.
	LineNo int    // Source line, or 0 if unknown.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("pc 0x%04x %v", err.Pc, err.Err)
	}
	return f("line %d pc 0x%04x %v", err.LineNo, err.Pc, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
