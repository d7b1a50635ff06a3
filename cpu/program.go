package cpu

import (
	"iter"
)

// Program is an assembled program listing.
type Program struct {
	Origin  uint16
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the listing entry that generated the word at ip.
func (prog *Program) Debug(ip uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(ip) >= op.Ip && int(ip) < op.Ip+len(op.Codes) {
			index := int(ip) - op.Ip
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  index,
			}
			break
		}
	}

	return
}

// LineNo returns the source line that generated the word at ip, or 0.
func (prog *Program) LineNo(ip uint16) int {
	dbg := prog.Debug(ip)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Words returns the program words in address order, starting at the origin.
func (prog *Program) Words() (words []uint16) {
	for _, code := range prog.Codes() {
		words = append(words, uint16(code))
	}

	return
}

// Image returns the loadable object image of the program.
func (prog *Program) Image() *Image {
	return &Image{
		Origin: prog.Origin,
		Words:  prog.Words(),
	}
}

func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(ip uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			ip := uint16(op.Ip)
			for n, code := range op.Codes {
				if !yield(ip+uint16(n), code) {
					return
				}
			}
		}
	}
}
