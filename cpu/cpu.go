// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"log"
	"strings"

	"github.com/ezrec/octet/internal"
)

const (
	REGISTER_COUNT = 4 // General purpose registers a..d.
)

var registerNames = [REGISTER_COUNT]string{"a", "b", "c", "d"}

var _cpu_defines = map[string]int{
	"registers":   REGISTER_COUNT,
	"memory_size": MEMORY_SIZE,
}

// State is the complete architectural state of the CPU.
type State struct {
	Register [REGISTER_COUNT]uint8 // Register bank.
	Pc       uint16                // Address of the next byte to fetch.
	Sp       uint16                // Stack pointer; the stack grows down.
	Zero     bool                  // Last result was zero.
	Carry    bool                  // Last add overflowed, or last subtract borrowed.
	Halted   bool                  // Set by HLT. Terminal.
}

// Cpu is the simulation context for the 8-bit CPU.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	State

	Ticks int // Count of instructions executed.
}

// NewCpu creates a new CPU with the stack pointer at sp.
func NewCpu(sp uint16) (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset(sp)

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return internal.Defines(_cpu_defines)
}

// Reset the CPU state. Pc is zeroed, Sp is set to sp.
func (cpu *Cpu) Reset(sp uint16) {
	if cpu.Verbose {
		log.Printf("cpu: reset, sp %04x", sp)
	}

	cpu.State = State{Sp: sp}
	cpu.Ticks = 0
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	flag := func(value bool) string {
		if value {
			return "1"
		}
		return "0"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "% 6s: %04X\n", "pc", cpu.Pc)
	fmt.Fprintf(&sb, "% 6s: %04X\n", "sp", cpu.Sp)
	for n, name := range registerNames {
		fmt.Fprintf(&sb, "% 6s: %02X (%d)\n", name, cpu.Register[n], cpu.Register[n])
	}
	fmt.Fprintf(&sb, "% 6s: %v\n", "zero", flag(cpu.Zero))
	fmt.Fprintf(&sb, "% 6s: %v\n", "carry", flag(cpu.Carry))
	fmt.Fprintf(&sb, "% 6s: %v\n", "halted", flag(cpu.Halted))

	return sb.String()
}

// handler executes one opcode. Pc has already advanced past the opcode
// byte; each handler consumes its own operand bytes.
type handler func(cpu *Cpu, mem Bus) error

// aluOp updates register dst with value.
type aluOp func(cpu *Cpu, dst uint8, value uint8) error

var dispatch [256]handler

func init() {
	handlers := map[Op]handler{
		OP_MOV_RR: regReg((*Cpu).mov),
		OP_MOV_RI: regImm((*Cpu).mov),
		OP_ADD_RR: regReg((*Cpu).add),
		OP_ADD_RI: regImm((*Cpu).add),
		OP_SUB_RR: regReg((*Cpu).sub),
		OP_SUB_RI: regImm((*Cpu).sub),
		OP_CMP_RR: regReg((*Cpu).cmp),
		OP_CMP_RI: regImm((*Cpu).cmp),
		OP_MUL:    regReg((*Cpu).mul),
		OP_DIV:    regReg((*Cpu).div),
		OP_JMP:    (*Cpu).jmp,
		OP_JZ:     (*Cpu).jz,
		OP_JNZ:    (*Cpu).jnz,
		OP_CALL:   (*Cpu).call,
		OP_RET:    (*Cpu).ret,
		OP_HLT:    (*Cpu).hlt,
	}

	for ins := range Instructions() {
		exec, ok := handlers[ins.Op]
		if !ok {
			panic(fmt.Sprintf("no handler for %v", ins.Op))
		}
		dispatch[ins.Op] = exec
		_cpu_defines["op_"+strings.ToLower(ins.Op.String())] = int(ins.Op)
	}
}

// Step executes a single instruction.
//
// A fault leaves the CPU state as it was before the step and is returned
// as an *ErrFault. Stepping a halted CPU returns ErrHalted.
func (cpu *Cpu) Step(mem Bus) (err error) {
	if cpu.Halted {
		return ErrHalted
	}

	prior := cpu.State
	pc := cpu.Pc

	if cpu.Verbose {
		code, _ := Decode(mem, pc)
		log.Printf("%04x: %v", pc, code)
	}

	op := Op(cpu.fetch8(mem))
	exec := dispatch[op]
	if exec == nil {
		err = ErrOpcodeInvalid
	} else {
		err = exec(cpu, mem)
	}

	if err != nil {
		cpu.State = prior
		err = &ErrFault{Pc: pc, Op: op, Err: err}
		return
	}

	cpu.Ticks++

	return
}

func (cpu *Cpu) fetch8(mem Bus) (value byte) {
	value = mem.Read(cpu.Pc)
	cpu.Pc++
	return
}

// fetch16 reads a little-endian address operand.
func (cpu *Cpu) fetch16(mem Bus) uint16 {
	low := uint16(cpu.fetch8(mem))
	high := uint16(cpu.fetch8(mem))
	return (high << 8) | low
}

func (cpu *Cpu) fetchReg(mem Bus) (index uint8, err error) {
	index = cpu.fetch8(mem)
	if index >= REGISTER_COUNT {
		err = ErrRegisterInvalid
	}
	return
}

// regReg reads a destination and source register index.
func regReg(op aluOp) handler {
	return func(cpu *Cpu, mem Bus) (err error) {
		dst, err := cpu.fetchReg(mem)
		if err != nil {
			return
		}
		src, err := cpu.fetchReg(mem)
		if err != nil {
			return
		}
		return op(cpu, dst, cpu.Register[src])
	}
}

// regImm reads a destination register index and an immediate byte.
func regImm(op aluOp) handler {
	return func(cpu *Cpu, mem Bus) (err error) {
		dst, err := cpu.fetchReg(mem)
		if err != nil {
			return
		}
		value := cpu.fetch8(mem)
		return op(cpu, dst, value)
	}
}

func (cpu *Cpu) mov(dst uint8, value uint8) error {
	cpu.Register[dst] = value
	cpu.Zero = value == 0
	return nil
}

func (cpu *Cpu) add(dst uint8, value uint8) error {
	sum := uint16(cpu.Register[dst]) + uint16(value)
	result := uint8(sum)
	cpu.Register[dst] = result
	cpu.Zero = result == 0
	cpu.Carry = sum > 0xff
	return nil
}

// compare sets the flags for a - value, and returns the difference.
func (cpu *Cpu) compare(a uint8, value uint8) (result uint8) {
	result = a - value
	cpu.Zero = result == 0
	cpu.Carry = value > a
	return
}

func (cpu *Cpu) sub(dst uint8, value uint8) error {
	cpu.Register[dst] = cpu.compare(cpu.Register[dst], value)
	return nil
}

func (cpu *Cpu) cmp(dst uint8, value uint8) error {
	cpu.compare(cpu.Register[dst], value)
	return nil
}

func (cpu *Cpu) mul(dst uint8, value uint8) error {
	product := uint16(cpu.Register[dst]) * uint16(value)
	result := uint8(product)
	cpu.Register[dst] = result
	cpu.Zero = result == 0
	cpu.Carry = product > 0xff
	return nil
}

// div leaves Carry unchanged.
func (cpu *Cpu) div(dst uint8, value uint8) error {
	if value == 0 {
		return ErrDivideByZero
	}
	result := cpu.Register[dst] / value
	cpu.Register[dst] = result
	cpu.Zero = result == 0
	return nil
}

func (cpu *Cpu) jmp(mem Bus) error {
	cpu.Pc = cpu.fetch16(mem)
	return nil
}

func (cpu *Cpu) jz(mem Bus) error {
	addr := cpu.fetch16(mem)
	if cpu.Zero {
		cpu.Pc = addr
	}
	return nil
}

func (cpu *Cpu) jnz(mem Bus) error {
	addr := cpu.fetch16(mem)
	if !cpu.Zero {
		cpu.Pc = addr
	}
	return nil
}

// call pushes the address following the instruction.
func (cpu *Cpu) call(mem Bus) error {
	addr := cpu.fetch16(mem)
	cpu.Push16(mem, cpu.Pc)
	cpu.Pc = addr
	return nil
}

func (cpu *Cpu) ret(mem Bus) error {
	cpu.Pc = cpu.Pop16(mem)
	return nil
}

func (cpu *Cpu) hlt(mem Bus) error {
	cpu.Halted = true
	return nil
}
