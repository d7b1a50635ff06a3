// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for LC-3 source.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.
	Origin  int      // Program origin from .ORIG, or -1.

	predefine  map[string]string   // Predefines
	Label      map[string]int      // Map of labels to addresses.
	Equate     map[string]string   // Map of equates.
	Macro      map[string](*Macro) // Map of macros.
	ended      bool                // .END seen.
	expansions int                 // Count of macro expansions.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names to register indexes.
var regMap = map[string]CodeReg{
	"r0": REG_R0,
	"r1": REG_R1,
	"r2": REG_R2,
	"r3": REG_R3,
	"r4": REG_R4,
	"r5": REG_R5,
	"r6": REG_R6,
	"r7": REG_R7,
}

// trapMap maps the trap service routine aliases.
var trapMap = map[string]CodeTrap{
	"GETC":  TRAP_GETC,
	"OUT":   TRAP_OUT,
	"PUTS":  TRAP_PUTS,
	"IN":    TRAP_IN,
	"PUTSP": TRAP_PUTSP,
	"HALT":  TRAP_HALT,
}

// mnemonics are the instruction names that can never be labels.
var mnemonics = map[string]bool{
	"ADD": true, "AND": true, "NOT": true,
	"JMP": true, "RET": true, "JSR": true, "JSRR": true,
	"LD": true, "LDI": true, "LDR": true, "LEA": true,
	"ST": true, "STI": true, "STR": true,
	"TRAP": true, "RTI": true,
	"GETC": true, "OUT": true, "PUTS": true, "IN": true, "PUTSP": true, "HALT": true,
}

var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// brCond decodes the condition suffix of a BR mnemonic.
func brCond(word string) (nzp CodeCond, ok bool) {
	upper := strings.ToUpper(word)
	if !strings.HasPrefix(upper, "BR") {
		return
	}

	suffix := upper[2:]
	if len(suffix) == 0 {
		return COND_NZP, true
	}

	for _, c := range suffix {
		var bit CodeCond
		switch c {
		case 'N':
			bit = COND_N
		case 'Z':
			bit = COND_Z
		case 'P':
			bit = COND_P
		default:
			return COND_NONE, false
		}
		if (nzp & bit) != 0 {
			return COND_NONE, false
		}
		nzp |= bit
	}

	ok = true
	return
}

// isMnemonic returns true if the word is an instruction or directive.
func isMnemonic(word string) bool {
	if strings.HasPrefix(word, ".") {
		return true
	}
	if mnemonics[strings.ToUpper(word)] {
		return true
	}
	_, ok := brCond(word)
	return ok
}

// register returns the register named by word.
func register(word string) (reg CodeReg, err error) {
	reg, ok := regMap[strings.ToLower(word)]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// valueOf returns the value of a simple word.
// Accepted forms are #10, #-3, x3000, 0x3000, 0b101, and 10.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}

	text := strings.TrimPrefix(word, "#")
	if len(text) > 1 && (text[0] == 'x' || text[0] == 'X') {
		v64, perr := strconv.ParseInt(text[1:], 16, 32)
		if perr == nil {
			value = int(v64)
			return
		}
	}

	v64, perr := strconv.ParseInt(text, 0, 32)
	if perr != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	return
}

// checkRange verifies that value fits a field of the given width.
func checkRange(value int, bits int, signed bool) (err error) {
	lo, hi := 0, (1<<bits)-1
	if signed {
		lo, hi = -(1 << (bits - 1)), (1<<(bits-1))-1
	}
	if value < lo || value > hi {
		err = ErrRange{Value: value, Bits: bits}
	}
	return
}

// immediate parses a signed immediate field.
func (asm *Assembler) immediate(word string, bits int) (value int, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}

	err = checkRange(value, bits, true)
	return
}

// pcOffset parses a PC-relative target, which is either a literal
// offset or a label to link once all labels are known.
func (asm *Assembler) pcOffset(word string, bits int) (offset int, label string, err error) {
	offset, err = asm.valueOf(word)
	if err == nil {
		err = checkRange(offset, bits, true)
		return
	}

	if !reIdentifier.MatchString(word) {
		return
	}

	offset = 0
	label = word
	err = nil
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var equ int
		equ, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(equ)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// outsideQuotes applies fn to the parts of line that are not inside a
// double quoted string.
func outsideQuotes(line string, fn func(text string) string) string {
	var out strings.Builder

	for len(line) > 0 {
		start := strings.IndexByte(line, '"')
		if start < 0 {
			out.WriteString(fn(line))
			break
		}
		out.WriteString(fn(line[:start]))
		line = line[start:]

		end := 1
		for end < len(line) && line[end] != '"' {
			if line[end] == '\\' {
				end++
			}
			end++
		}
		end = min(end+1, len(line))
		out.WriteString(line[:end])
		line = line[end:]
	}

	return out.String()
}

// stripComment removes a trailing ';' comment, ignoring semicolons in
// strings and character quotes.
func stripComment(text string) string {
	quoted := false
	for n := 0; n < len(text); n++ {
		c := text[n]
		switch {
		case quoted && c == '\\':
			n++
		case c == '"':
			quoted = !quoted
		case !quoted && c == '\'' && n+2 < len(text) && text[n+2] == '\'':
			n += 2
		case !quoted && c == ';':
			return text[:n]
		}
	}

	return text
}

// splitWords splits a line on whitespace and commas, keeping double
// quoted strings as single words.
func splitWords(line string) (words []string) {
	var word strings.Builder
	quoted := false
	escaped := false

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for _, r := range line {
		switch {
		case quoted:
			word.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				quoted = false
			}
		case r == '"':
			quoted = true
			word.WriteRune(r)
		case r == ',' || unicode.IsSpace(r):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()

	return
}

var reCharacter = regexp.MustCompile(`'\\?[^']'`)
var reParen = regexp.MustCompile(`\$\([^\$]*\)`)

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	line = outsideQuotes(line, func(text string) string {
		// Do 'x' evaluations
		text = reCharacter.ReplaceAllStringFunc(text, func(word string) string {
			str := word[1 : len(word)-1]
			if str[0] == '\\' {
				str = str[1:]
				switch str {
				case "\\":
					str = "\\"
				case "n":
					str = "\n"
				case "r":
					str = "\r"
				case "t":
					str = "\t"
				case "e":
					str = "\033"
				case "0":
					str = "\000"
				default:
					return word
				}
			} else if len(str) != 1 {
				return word
			}
			return fmt.Sprintf("%v", str[0])
		})

		// Do $() evaluations
		return reParen.ReplaceAllStringFunc(text, func(str string) string {
			value, _err := asm.parenEval(str[2 : len(str)-1])
			if _err != nil {
				err = _err
			}
			return fmt.Sprintf("%d", value)
		})
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.EqualFold(words[0], ".equ") {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		err = asm.defineLabel(words[0][:len(words[0])-1])
		if err != nil {
			return
		}
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// A leading identifier that is not an instruction is a label.
	_, is_macro := asm.Macro[words[0]]
	if !is_macro && !isMnemonic(words[0]) && reIdentifier.MatchString(words[0]) {
		if _, is_reg := regMap[strings.ToLower(words[0])]; !is_reg {
			err = asm.defineLabel(words[0])
			if err != nil {
				return
			}
			words = words[1:]
			if len(words) == 0 {
				return
			}
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// defineLabel binds a label to the current address.
func (asm *Assembler) defineLabel(label string) (err error) {
	if !reIdentifier.MatchString(label) {
		err = ErrLabelInvalid
		return
	}
	if asm.Origin < 0 {
		err = ErrOrigMissing
		return
	}
	_, ok := asm.Label[label]
	if ok {
		err = ErrLabelDuplicate
		return
	}

	if asm.Label == nil {
		asm.Label = make(map[string]int, 16)
	}
	asm.Label[label] = asm.currentIp()
	return
}

// currentIp gets the current Ip
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return max(asm.Origin, 0)
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Codes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Origin = -1
	asm.ended = false
	asm.expansions = 0
	asm.Label = make(map[string]int, 16)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, _cpu_defines)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		if asm.ended {
			continue
		}

		line = strings.TrimSpace(stripComment(text))
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && strings.EqualFold(words[0], ".macro") {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && strings.EqualFold(words[0], ".endm") {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}

		if asm.currentIp() > MEMORY_SIZE {
			err = ErrImageOverflow
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")

		label := op.LinkLabel
		ip, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		linked := &op.Codes[len(op.Codes)-1]
		if op.LinkBits == 0 {
			*linked = Code(uint16(ip))
			continue
		}
		offset := ip - (op.Ip + len(op.Codes))
		err = checkRange(offset, op.LinkBits, true)
		if err != nil {
			return
		}
		*linked |= Code(uint16(offset) & ((1 << op.LinkBits) - 1))
	}

	origin := asm.Origin
	if origin < 0 {
		origin = int(SPACE_USER)
	}

	prog = &Program{
		Origin:  uint16(origin),
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string
	var link_bits int

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Ip: asm.currentIp(), Words: initial_words, Codes: codes, LinkLabel: label, LinkBits: link_bits}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	op := strings.ToUpper(words[0])
	args := words[1:]

	if asm.Origin < 0 && op != ".ORIG" {
		err = ErrOrigMissing
		return
	}

	// need checks for an exact argument count.
	need := func(count int) error {
		switch {
		case len(args) < count:
			return ErrOpcodeValueMissing
		case len(args) > count:
			return ErrOpcodeExtraArgs
		}
		return nil
	}

	if nzp, ok := brCond(op); ok {
		err = need(1)
		if err != nil {
			return
		}
		var offset int
		offset, label, err = asm.pcOffset(args[0], 9)
		if err != nil {
			return
		}
		link_bits = 9
		codes = append(codes, MakeCodeBr(nzp, offset))
		return
	}

	if vector, ok := trapMap[op]; ok {
		err = need(0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeTrap(vector))
		return
	}

	switch op {
	case ".ORIG":
		err = need(1)
		if err != nil {
			return
		}
		if asm.Origin >= 0 {
			err = ErrOrigDuplicate
			return
		}
		var origin int
		origin, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		err = checkRange(origin, 16, false)
		if err != nil {
			return
		}
		asm.Origin = origin
	case ".END":
		err = need(0)
		if err != nil {
			return
		}
		asm.ended = true
	case ".FILL":
		err = need(1)
		if err != nil {
			return
		}
		var value int
		value, err = asm.valueOf(args[0])
		if err != nil {
			if !reIdentifier.MatchString(args[0]) {
				return
			}
			err = nil
			label = args[0]
		} else if value < -(1<<15) || value >= (1<<16) {
			err = ErrRange{Value: value, Bits: 16}
			return
		}
		codes = append(codes, Code(uint16(value)))
	case ".BLKW":
		err = need(1)
		if err != nil {
			return
		}
		var count int
		count, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		err = checkRange(count, 16, false)
		if err != nil {
			return
		}
		codes = make([]Code, count)
	case ".STRINGZ":
		err = need(1)
		if err != nil {
			return
		}
		text, uerr := strconv.Unquote(args[0])
		if uerr != nil || !strings.HasPrefix(args[0], "\"") {
			err = ErrStringSyntax
			return
		}
		for _, c := range []byte(text) {
			codes = append(codes, Code(c))
		}
		codes = append(codes, 0)
	case "ADD", "AND":
		err = need(3)
		if err != nil {
			return
		}
		alu := OP_ADD
		if op == "AND" {
			alu = OP_AND
		}
		var dr, sr1, sr2 CodeReg
		dr, err = register(args[0])
		if err != nil {
			return
		}
		sr1, err = register(args[1])
		if err != nil {
			return
		}
		sr2, err = register(args[2])
		if err == nil {
			codes = append(codes, MakeCodeAlu(alu, dr, sr1, sr2))
			return
		}
		var imm int
		imm, err = asm.immediate(args[2], 5)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAluImm(alu, dr, sr1, imm))
	case "NOT":
		err = need(2)
		if err != nil {
			return
		}
		var dr, sr CodeReg
		dr, err = register(args[0])
		if err != nil {
			return
		}
		sr, err = register(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNot(dr, sr))
	case "JMP", "JSRR":
		err = need(1)
		if err != nil {
			return
		}
		var base CodeReg
		base, err = register(args[0])
		if err != nil {
			return
		}
		if op == "JMP" {
			codes = append(codes, MakeCodeJmp(base))
		} else {
			codes = append(codes, MakeCodeJsrr(base))
		}
	case "RET":
		err = need(0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeJmp(REG_R7))
	case "JSR":
		err = need(1)
		if err != nil {
			return
		}
		var offset int
		offset, label, err = asm.pcOffset(args[0], 11)
		if err != nil {
			return
		}
		link_bits = 11
		codes = append(codes, MakeCodeJsr(offset))
	case "LD", "LDI", "LEA", "ST", "STI":
		err = need(2)
		if err != nil {
			return
		}
		pcrel := map[string]CodeOp{"LD": OP_LD, "LDI": OP_LDI, "LEA": OP_LEA, "ST": OP_ST, "STI": OP_STI}[op]
		var reg CodeReg
		reg, err = register(args[0])
		if err != nil {
			return
		}
		var offset int
		offset, label, err = asm.pcOffset(args[1], 9)
		if err != nil {
			return
		}
		link_bits = 9
		codes = append(codes, MakeCodePcRel(pcrel, reg, offset))
	case "LDR", "STR":
		err = need(3)
		if err != nil {
			return
		}
		based := OP_LDR
		if op == "STR" {
			based = OP_STR
		}
		var reg, base CodeReg
		reg, err = register(args[0])
		if err != nil {
			return
		}
		base, err = register(args[1])
		if err != nil {
			return
		}
		var offset int
		offset, err = asm.immediate(args[2], 6)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBase(based, reg, base, offset))
	case "TRAP":
		err = need(1)
		if err != nil {
			return
		}
		var vector int
		vector, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		err = checkRange(vector, 8, false)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeTrap(CodeTrap(vector)))
	case "RTI":
		err = need(0)
		if err != nil {
			return
		}
		codes = append(codes, makeOp(OP_RTI, 0))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
