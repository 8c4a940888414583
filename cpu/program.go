package cpu

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Symbols maps label names to addresses.
type Symbols map[string]uint16

// Opcode represents a line of assembled code with its source location and generated instruction.
type Opcode struct {
	LineNo int      // Source line, or 0 for code read from a binary image.
	Addr   uint16   // Address of the first byte of the instruction.
	Words  []string // Source words.
	Code   Code
}

// Program is an assembled listing.
type Program struct {
	Opcodes []Opcode
	Symbols Symbols
}

// NewProgram creates a listing for a raw binary image loaded at address 0.
func NewProgram(data []byte) (prog *Program) {
	prog = &Program{Symbols: Symbols{}}
	for addr, code := range Disassemble(data, 0) {
		prog.Opcodes = append(prog.Opcodes, Opcode{
			Addr:  addr,
			Words: strings.Fields(strings.ReplaceAll(code.String(), ",", "")),
			Code:  code,
		})
	}

	return
}

type Debug struct {
	*Opcode
	Index int // Byte offset within the instruction.
}

// Debug finds the listing entry that contains addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= int(op.Addr) && int(addr) < int(op.Addr)+op.Code.Size() {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr - op.Addr),
			}
			break
		}
	}

	return
}

// Binary returns the raw image of the program.
func (prog *Program) Binary() (bins []byte) {
	for _, code := range prog.Codes() {
		bins = append(bins, code.Bytes()...)
	}

	return
}

// Codes iterates over the program's instructions and their addresses.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			if !yield(op.Addr, op.Code) {
				return
			}
		}
	}
}

// Listing writes a human readable listing of the program.
func (prog *Program) Listing(w io.Writer) (err error) {
	labels := map[uint16][]string{}
	for label, addr := range prog.Symbols {
		labels[addr] = append(labels[addr], label)
	}

	for _, op := range prog.Opcodes {
		names := labels[op.Addr]
		slices.Sort(names)
		for _, name := range names {
			_, err = fmt.Fprintf(w, "%24s%v:\n", "", name)
			if err != nil {
				return
			}
		}
		_, err = fmt.Fprintf(w, "%04x  % -8x  %5d  %v\n", op.Addr, op.Code.Bytes(), op.LineNo, op.Code)
		if err != nil {
			return
		}
	}

	return
}

// Labels returns the label names sorted by address.
func (prog *Program) Labels() []string {
	names := slices.Collect(maps.Keys(prog.Symbols))
	slices.SortFunc(names, func(a, b string) int {
		if prog.Symbols[a] != prog.Symbols[b] {
			return int(prog.Symbols[a]) - int(prog.Symbols[b])
		}
		return strings.Compare(a, b)
	})
	return names
}
