package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_Push(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}
	cpu := NewCpu(0x8000)

	cpu.Push16(mem, 0x1234)
	assert.Equal(uint16(0x7ffe), cpu.Sp)
	assert.Equal(byte(0x12), mem.Read(0x7fff))
	assert.Equal(byte(0x34), mem.Read(0x7ffe))
	assert.Equal(uint16(0x1234), cpu.Peek16(mem))
}

func TestStack_Pop(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}
	cpu := NewCpu(0x8000)

	cpu.Push16(mem, 0x1234)
	cpu.Push16(mem, 0xabcd)

	assert.Equal(uint16(0xabcd), cpu.Pop16(mem))
	assert.Equal(uint16(0x7ffe), cpu.Sp)
	assert.Equal(uint16(0x1234), cpu.Pop16(mem))
	assert.Equal(uint16(0x8000), cpu.Sp)
}

func TestStack_Wrap(t *testing.T) {
	assert := assert.New(t)

	for _, sp := range []uint16{0x0000, 0x0001, 0x0002, 0xffff, 0x8000} {
		mem := &Memory{}
		cpu := NewCpu(sp)

		cpu.Push16(mem, 0xbeef)
		assert.Equal(sp-2, cpu.Sp, "sp %04x", sp)
		assert.Equal(byte(0xbe), mem.Read(sp-1), "sp %04x", sp)
		assert.Equal(byte(0xef), mem.Read(sp-2), "sp %04x", sp)

		assert.Equal(uint16(0xbeef), cpu.Pop16(mem), "sp %04x", sp)
		assert.Equal(sp, cpu.Sp, "sp %04x", sp)
	}
}

func TestStack_Depth(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}
	cpu := NewCpu(0)

	for n := range 64 {
		cpu.Push16(mem, uint16(n*0x101))
	}
	assert.Equal(uint16(0x10000-128), cpu.Sp)

	for n := 63; n >= 0; n-- {
		assert.Equal(uint16(n*0x101), cpu.Pop16(mem))
	}
	assert.Equal(uint16(0), cpu.Sp)
}
