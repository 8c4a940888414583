// Package cpu implements the 8-bit microprocessor and assembler for the octet system.
//
// The CPU has four 8-bit registers (a-d), a 16-bit program counter (PC), a
// 16-bit stack pointer (SP) over a descending in-memory stack, and zero and
// carry flags. It executes from a flat 64KiB memory, one instruction per Step.
// Instructions are one byte (ret, hlt) or three bytes: an opcode followed by
// two operand bytes.
//
// The assembler is a two pass assembler: the first pass assigns label
// addresses, the second emits code. It supports labels, equates, and
// compile-time expression evaluation.
package cpu
