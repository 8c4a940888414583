// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"lineno": "0",
}

// Line is one preprocessed line of assembly source.
type Line struct {
	LineNo int      // 1-based source line number.
	Text   string   // Raw source text.
	Labels []string // Labels declared on the line.
	Words  []string // Instruction words; empty for label-only lines.

	// Equate values of jump targets, used only when no label matches.
	Alias map[string]string
}

// Assembler is a two pass assembler for the octet CPU.
//
// Pass 1 walks the preprocessed lines to assign every label an address.
// Pass 2 walks them again, emitting code with all labels resolved.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string
	Equate    map[string]string // Map of equates.
	Label     Symbols           // Label addresses from the last Parse.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	equ = strings.ToLower(equ)
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var (
	reParenEval = regexp.MustCompile(`\$\([^\$]*\)`)
)

// registerMap is a map of register names to register indexes.
var registerMap = func() map[string]uint8 {
	regs := make(map[string]uint8, len(registerNames))
	for n, name := range registerNames {
		regs[name] = uint8(n)
	}
	return regs
}()

func isDigits(word string) bool {
	if len(word) == 0 {
		return false
	}
	for _, c := range word {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// parseRegister returns the index of a register name.
func parseRegister(word string) (index uint8, err error) {
	index, ok := registerMap[word]
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// parseImmediate returns the value of an unsigned 8-bit decimal literal.
func parseImmediate(word string) (value uint8, err error) {
	if !isDigits(word) {
		err = ErrParseValue(word)
		return
	}
	v64, err := strconv.ParseUint(word, 10, 8)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}
	value = uint8(v64)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or labels.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine splits a line of source into labels and instruction words,
// handling comments, equates and $(...) expressions.
func (asm *Assembler) parseLine(text string, lineno int) (line Line, err error) {
	line = Line{LineNo: lineno, Text: text}

	asm.Equate["lineno"] = strconv.Itoa(lineno)

	src, _, _ := strings.Cut(text, ";")
	src = strings.ToLower(strings.TrimSpace(src))

	src = reParenEval.ReplaceAllStringFunc(src, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return strconv.FormatInt(value, 10)
	})
	if err != nil {
		return
	}

	words := strings.FieldsFunc(src, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	if len(words) == 0 {
		return
	}

	// .equ NAME VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		value := words[2]
		if equate, ok := asm.Equate[value]; ok {
			value = equate
		}
		asm.Equate[words[1]] = value
		return
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := strings.TrimSuffix(words[0], ":")
		if len(label) == 0 || isDigits(label) || strings.Contains(label, ":") {
			err = ErrLabelInvalid
			return
		}
		line.Labels = append(line.Labels, label)
		words = words[1:]
	}

	for n, word := range words {
		equate, ok := asm.Equate[word]
		if !ok {
			continue
		}
		if n > 0 && isJump(words[0]) {
			// A label of the same name wins; see target().
			if line.Alias == nil {
				line.Alias = map[string]string{}
			}
			line.Alias[word] = equate
			continue
		}
		words[n] = equate
	}

	line.Words = words

	return
}

// isJump reports whether the mnemonic takes an address operand.
func isJump(mnemonic string) bool {
	_, ok := Form(mnemonic, SHAPE_ADDR)
	return ok
}

// syntaxError attributes an error to a source line.
func syntaxError(line Line, err error) error {
	return &ErrSyntax{LineNo: line.LineNo, Line: line.Text, Err: err}
}

// resolveLabels is the first pass. It assigns an address to every label
// by summing the fixed instruction sizes that precede it. Code and labels
// must fit below MEMORY_SIZE.
func resolveLabels(lines []Line) (symbols Symbols, err error) {
	symbols = Symbols{}

	var addr int
	for _, line := range lines {
		for _, label := range line.Labels {
			if _, ok := symbols[label]; ok {
				err = syntaxError(line, ErrLabelDuplicate)
				return
			}
			if addr >= MEMORY_SIZE {
				err = syntaxError(line, ErrAddressRange)
				return
			}
			symbols[label] = uint16(addr)
		}

		if len(line.Words) == 0 {
			continue
		}

		var size int
		size, err = SizeOf(line.Words[0])
		if err != nil {
			err = syntaxError(line, err)
			return
		}
		addr += size
		if addr > MEMORY_SIZE {
			err = syntaxError(line, ErrAddressRange)
			return
		}
	}

	return
}

// emit is the second pass. It encodes every instruction using the labels
// resolved by the first pass.
func emit(lines []Line, symbols Symbols) (opcodes []Opcode, err error) {
	var addr uint16
	for _, line := range lines {
		for _, label := range line.Labels {
			if symbols[label] != addr {
				err = syntaxError(line, ErrPassMismatch)
				return
			}
		}

		if len(line.Words) == 0 {
			continue
		}

		var code Code
		code, err = encode(line.Words, line.Alias, symbols)
		if err != nil {
			err = syntaxError(line, err)
			return
		}

		opcodes = append(opcodes, Opcode{
			LineNo: line.LineNo,
			Addr:   addr,
			Words:  line.Words,
			Code:   code,
		})
		addr += uint16(code.Size())
	}

	return
}

// argCount verifies the number of operands.
func argCount(args []string, count int) (err error) {
	switch {
	case len(args) < count:
		err = ErrOpcodeValueMissing
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// target resolves a jump or call destination: a label, an equate, or a
// decimal absolute address. Labels take precedence over equates.
func target(word string, alias map[string]string, symbols Symbols) (addr uint16, err error) {
	addr, ok := symbols[word]
	if ok {
		return
	}

	if equate, ok := alias[word]; ok {
		word = equate
		if addr, ok = symbols[word]; ok {
			return
		}
	}

	if !isDigits(word) {
		err = ErrLabelMissing(word)
		return
	}

	v64, err := strconv.ParseUint(word, 10, 16)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}
	addr = uint16(v64)

	return
}

// encode encodes the words of a single instruction.
func encode(words []string, alias map[string]string, symbols Symbols) (code Code, err error) {
	mnemonic, args := words[0], words[1:]

	if _, err = SizeOf(mnemonic); err != nil {
		return
	}

	if op, ok := Form(mnemonic, SHAPE_NONE); ok {
		err = argCount(args, 0)
		code = Code{Op: op}
		return
	}

	if op, ok := Form(mnemonic, SHAPE_ADDR); ok {
		if err = argCount(args, 1); err != nil {
			return
		}
		var addr uint16
		addr, err = target(args[0], alias, symbols)
		if err != nil {
			return
		}
		code = makeAddr(op, addr)
		return
	}

	if err = argCount(args, 2); err != nil {
		return
	}

	dst, err := parseRegister(args[0])
	if err != nil {
		return
	}

	if src, ok := registerMap[args[1]]; ok {
		op, ok := Form(mnemonic, SHAPE_REG_REG)
		if !ok {
			err = ErrParseValue(args[1])
			return
		}
		code = Code{Op: op, Args: []byte{dst, src}}
		return
	}

	op, ok := Form(mnemonic, SHAPE_REG_IMM)
	if !ok {
		err = ErrParseRegister(args[1])
		return
	}

	imm, err := parseImmediate(args[1])
	if err != nil {
		return
	}
	code = Code{Op: op, Args: []byte{dst, imm}}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	asm.Label = nil
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	var lines []Line
	var lineno int
	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		var line Line
		line, err = asm.parseLine(text, lineno)
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: text, Err: err}
			return
		}

		if asm.Verbose {
			log.Printf("%v", line)
		}

		if len(line.Labels) == 0 && len(line.Words) == 0 {
			continue
		}

		lines = append(lines, line)
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	symbols, err := resolveLabels(lines)
	if err != nil {
		return
	}

	opcodes, err := emit(lines, symbols)
	if err != nil {
		return
	}

	if asm.Verbose {
		for label, addr := range symbols {
			log.Printf("label %v = %04x", label, addr)
		}
	}

	asm.Label = symbols
	prog = &Program{
		Opcodes: opcodes,
		Symbols: maps.Clone(symbols),
	}

	return
}

// Assemble assembles source text into a raw binary image to be loaded at
// address 0.
func Assemble(source string) (binary []byte, err error) {
	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(source))
	if err != nil {
		return
	}

	binary = prog.Binary()

	return
}

// String returns a short description of the line, for logging.
func (line Line) String() string {
	return fmt.Sprintf("%d: %v %v", line.LineNo, line.Labels, line.Words)
}
