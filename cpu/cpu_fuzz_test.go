package cpu

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// model computes the expected result of executing code at pc, independently
// of the dispatch table.
func model(prior State, code Code, mem *Memory) (next State, err error) {
	next = prior

	ins, ok := Lookup(code.Op)
	if !ok {
		err = ErrOpcodeInvalid
		return
	}

	next.Pc = prior.Pc + uint16(ins.Size())

	var dst, value uint8
	switch ins.Shape {
	case SHAPE_REG_REG:
		dst = code.Args[0]
		if dst >= REGISTER_COUNT || code.Args[1] >= REGISTER_COUNT {
			err = ErrRegisterInvalid
			return
		}
		value = prior.Register[code.Args[1]]
	case SHAPE_REG_IMM:
		dst = code.Args[0]
		if dst >= REGISTER_COUNT {
			err = ErrRegisterInvalid
			return
		}
		value = code.Args[1]
	}

	a := int(prior.Register[dst])
	v := int(value)

	switch ins.Mnemonic {
	case "mov":
		next.Register[dst] = value
		next.Zero = value == 0
	case "add":
		next.Register[dst] = uint8(a + v)
		next.Zero = (a+v)%256 == 0
		next.Carry = a+v > 255
	case "sub", "cmp":
		if ins.Mnemonic == "sub" {
			next.Register[dst] = uint8(a - v)
		}
		next.Zero = a == v
		next.Carry = v > a
	case "mul":
		next.Register[dst] = uint8(a * v)
		next.Zero = (a*v)%256 == 0
		next.Carry = a*v > 255
	case "div":
		if v == 0 {
			err = ErrDivideByZero
			return
		}
		next.Register[dst] = uint8(a / v)
		next.Zero = a/v == 0
	case "jmp":
		next.Pc = code.Addr()
	case "jz":
		if prior.Zero {
			next.Pc = code.Addr()
		}
	case "jnz":
		if !prior.Zero {
			next.Pc = code.Addr()
		}
	case "call":
		next.Sp = prior.Sp - 2
		next.Pc = code.Addr()
	case "ret":
		next.Sp = prior.Sp + 2
		next.Pc = uint16(mem.Read(prior.Sp)) | uint16(mem.Read(prior.Sp+1))<<8
	case "hlt":
		next.Halted = true
	}

	return
}

func FuzzCpu(f *testing.F) {
	for ins := range Instructions() {
		f.Add(uint8(ins.Op), uint8(0), uint8(1), uint8(0x10), uint8(0xf0), uint16(0x1234), uint16(0), false)
		f.Add(uint8(ins.Op), uint8(3), uint8(2), uint8(0xff), uint8(0x00), uint16(0xfffe), uint16(1), true)
	}
	f.Add(uint8(0x00), uint8(0), uint8(0), uint8(0), uint8(0), uint16(0), uint16(0), false)

	f.Fuzz(func(t *testing.T, opcode uint8, arg1 uint8, arg2 uint8, ra uint8, rb uint8, pc uint16, sp uint16, zero bool) {
		assert := assert.New(t)

		mem := &Memory{}
		mem.Write(sp, 0x5a)
		mem.Write(sp+1, 0xa5)
		mem.Load(pc, []byte{opcode, arg1, arg2})

		cpu := NewCpu(sp)
		cpu.Pc = pc
		cpu.Register = [REGISTER_COUNT]uint8{ra, rb, ra ^ rb, 0}
		cpu.Zero = zero
		cpu.Carry = !zero

		prior := cpu.State
		code := Code{Op: Op(opcode), Args: []byte{arg1, arg2}}
		if ins, ok := Lookup(code.Op); ok {
			code.Args = code.Args[:ins.Size()-1]
		}

		expected, expected_err := model(prior, code, mem)

		err := cpu.Step(mem)

		code_str := fmt.Sprintf("%v (% x)\ncpu:%v", code, code.Bytes(), cpu.String())

		if expected_err != nil {
			assert.ErrorIs(err, expected_err, code_str)
			var fault *ErrFault
			assert.True(errors.As(err, &fault), code_str)
			assert.Equal(pc, fault.Pc, code_str)
			assert.Equal(prior, cpu.State, code_str)
			assert.Equal(0, cpu.Ticks, code_str)
			return
		}

		assert.NoError(err, code_str)
		assert.Equal(expected, cpu.State, code_str)
		assert.Equal(1, cpu.Ticks, code_str)

		if code.Op == OP_CALL {
			assert.Equal(pc+3, cpu.Peek16(mem), code_str)
		}
	})
}
