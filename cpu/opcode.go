package cpu

import (
	"fmt"
	"iter"
	"strings"
)

// Op is an opcode byte.
type Op uint8

// Opcode values. Register-register and register-immediate forms are
// distinct opcodes.
const (
	OP_MOV_RI = Op(0x01)
	OP_ADD_RR = Op(0x02)
	OP_SUB_RR = Op(0x03)
	OP_JMP    = Op(0x04)
	OP_JZ     = Op(0x05)
	OP_JNZ    = Op(0x06)
	OP_CMP_RI = Op(0x07)
	OP_MOV_RR = Op(0x08)
	OP_CMP_RR = Op(0x09)
	OP_ADD_RI = Op(0x0A)
	OP_SUB_RI = Op(0x0B)
	OP_MUL    = Op(0x0C)
	OP_DIV    = Op(0x0D)
	OP_CALL   = Op(0x0E)
	OP_RET    = Op(0x0F)
	OP_HLT    = Op(0xFF)
)

// Shape is the operand layout of an instruction.
type Shape int

//go:generate go tool stringer -linecomment -type=Shape
const (
	SHAPE_NONE    = Shape(0) // none
	SHAPE_REG_REG = Shape(1) // rr
	SHAPE_REG_IMM = Shape(2) // ri
	SHAPE_ADDR    = Shape(3) // addr
)

// Size returns the total encoded length of an instruction with this shape.
func (shape Shape) Size() int {
	if shape == SHAPE_NONE {
		return 1
	}
	return 3
}

// Instruction is one row of the instruction table.
type Instruction struct {
	Op       Op
	Mnemonic string
	Shape    Shape
}

// Size returns the encoded length in bytes.
func (ins Instruction) Size() int {
	return ins.Shape.Size()
}

var instructionTable = []Instruction{
	{OP_MOV_RR, "mov", SHAPE_REG_REG},
	{OP_MOV_RI, "mov", SHAPE_REG_IMM},
	{OP_ADD_RR, "add", SHAPE_REG_REG},
	{OP_ADD_RI, "add", SHAPE_REG_IMM},
	{OP_SUB_RR, "sub", SHAPE_REG_REG},
	{OP_SUB_RI, "sub", SHAPE_REG_IMM},
	{OP_CMP_RR, "cmp", SHAPE_REG_REG},
	{OP_CMP_RI, "cmp", SHAPE_REG_IMM},
	{OP_MUL, "mul", SHAPE_REG_REG},
	{OP_DIV, "div", SHAPE_REG_REG},
	{OP_JMP, "jmp", SHAPE_ADDR},
	{OP_JZ, "jz", SHAPE_ADDR},
	{OP_JNZ, "jnz", SHAPE_ADDR},
	{OP_CALL, "call", SHAPE_ADDR},
	{OP_RET, "ret", SHAPE_NONE},
	{OP_HLT, "hlt", SHAPE_NONE},
}

type formKey struct {
	mnemonic string
	shape    Shape
}

// Built during variable initialization so that init() functions in this
// package may rely on them.
var opTable, formTable, sizeTable = buildTables()

func buildTables() (ops *[256]*Instruction, forms map[formKey]Op, sizes map[string]int) {
	ops = &[256]*Instruction{}
	forms = map[formKey]Op{}
	sizes = map[string]int{}

	for n := range instructionTable {
		ins := &instructionTable[n]
		if ops[ins.Op] != nil {
			panic(fmt.Sprintf("opcode 0x%02x defined twice", uint8(ins.Op)))
		}
		ops[ins.Op] = ins
		forms[formKey{ins.Mnemonic, ins.Shape}] = ins.Op

		size, ok := sizes[ins.Mnemonic]
		if ok && size != ins.Size() {
			panic(fmt.Sprintf("mnemonic %v has forms of differing size", ins.Mnemonic))
		}
		sizes[ins.Mnemonic] = ins.Size()
	}

	return
}

// Instructions iterates over the instruction table.
func Instructions() iter.Seq[Instruction] {
	return func(yield func(Instruction) bool) {
		for _, ins := range instructionTable {
			if !yield(ins) {
				return
			}
		}
	}
}

// Lookup returns the table entry for an opcode byte.
func Lookup(op Op) (ins Instruction, ok bool) {
	entry := opTable[op]
	if entry == nil {
		return
	}
	return *entry, true
}

// Name returns the mnemonic of an opcode, or "???" if it is not defined.
func Name(op Op) string {
	ins, ok := Lookup(op)
	if !ok {
		return "???"
	}
	return ins.Mnemonic
}

// String returns the upper case mnemonic and form of the opcode.
func (op Op) String() string {
	ins, ok := Lookup(op)
	if !ok {
		return fmt.Sprintf("0x%02x", uint8(op))
	}
	name := strings.ToUpper(ins.Mnemonic)
	switch ins.Shape {
	case SHAPE_REG_REG:
		if _, ok := Form(ins.Mnemonic, SHAPE_REG_IMM); ok {
			name += "_RR"
		}
	case SHAPE_REG_IMM:
		name += "_RI"
	}
	return name
}

// SizeOf returns the encoded size of any instruction with the mnemonic.
func SizeOf(mnemonic string) (size int, err error) {
	size, ok := sizeTable[mnemonic]
	if !ok {
		err = ErrInstructionInvalid
	}
	return
}

// Form selects the opcode for a mnemonic and operand shape.
func Form(mnemonic string, shape Shape) (op Op, ok bool) {
	op, ok = formTable[formKey{mnemonic, shape}]
	return
}

// Code is a single encoded instruction: the opcode and its operand bytes.
type Code struct {
	Op   Op
	Args []byte
}

// Bytes returns the encoded instruction.
func (code Code) Bytes() []byte {
	return append([]byte{byte(code.Op)}, code.Args...)
}

// Size returns the number of bytes in the encoding.
func (code Code) Size() int {
	return 1 + len(code.Args)
}

// Addr returns the little-endian address operand.
func (code Code) Addr() uint16 {
	if len(code.Args) < 2 {
		return 0
	}
	return uint16(code.Args[0]) | uint16(code.Args[1])<<8
}

// makeAddr creates an instruction with a little-endian address operand.
func makeAddr(op Op, addr uint16) Code {
	return Code{Op: op, Args: []byte{byte(addr & 0xff), byte(addr >> 8)}}
}

// regName returns the assembly name of a register index.
func regName(index byte) string {
	if int(index) < len(registerNames) {
		return registerNames[index]
	}
	return fmt.Sprintf("r%d", index)
}

// String returns the assembly language representation of this instruction.
func (code Code) String() string {
	ins, ok := Lookup(code.Op)
	if !ok {
		return fmt.Sprintf("??? 0x%02x", uint8(code.Op))
	}
	if len(code.Args) != ins.Size()-1 {
		return fmt.Sprintf("%v <truncated % x>", ins.Mnemonic, code.Args)
	}

	switch ins.Shape {
	case SHAPE_REG_REG:
		return fmt.Sprintf("%v %v, %v", ins.Mnemonic, regName(code.Args[0]), regName(code.Args[1]))
	case SHAPE_REG_IMM:
		return fmt.Sprintf("%v %v, %d", ins.Mnemonic, regName(code.Args[0]), code.Args[1])
	case SHAPE_ADDR:
		return fmt.Sprintf("%v 0x%04x", ins.Mnemonic, code.Addr())
	}

	return ins.Mnemonic
}

// Decode reads the instruction at addr from memory. Operand addresses wrap
// at the top of memory.
func Decode(mem Bus, addr uint16) (code Code, err error) {
	code.Op = Op(mem.Read(addr))
	ins, ok := Lookup(code.Op)
	if !ok {
		err = ErrOpcodeInvalid
		return
	}

	for n := range ins.Size() - 1 {
		code.Args = append(code.Args, mem.Read(addr+1+uint16(n)))
	}

	return
}

// Disassemble walks a raw image, yielding each instruction and its address.
// Undefined opcodes are yielded as single byte codes, and a truncated final
// instruction keeps only the bytes present.
func Disassemble(data []byte, origin uint16) iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for offset := 0; offset < len(data); {
			code := Code{Op: Op(data[offset])}
			size := 1
			if ins, ok := Lookup(code.Op); ok {
				size = min(ins.Size(), len(data)-offset)
			}
			if size > 1 {
				code.Args = append([]byte(nil), data[offset+1:offset+size]...)
			}
			if !yield(origin+uint16(offset), code) {
				return
			}
			offset += size
		}
	}
}
