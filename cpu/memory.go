package cpu

const (
	MEMORY_SIZE = 0x10000 // Addressable bytes.
)

// Bus is byte-granular access to the 16-bit address space.
type Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// Memory is the flat 64KiB store shared by the loader and the CPU.
type Memory [MEMORY_SIZE]byte

var _ Bus = (*Memory)(nil)

// Read returns the byte at addr.
func (mem *Memory) Read(addr uint16) byte {
	return mem[addr]
}

// Write stores a byte at addr.
func (mem *Memory) Write(addr uint16, value byte) {
	mem[addr] = value
}

// Load copies data into memory starting at addr, wrapping past 0xffff.
func (mem *Memory) Load(addr uint16, data []byte) {
	for n, value := range data {
		mem[addr+uint16(n)] = value
	}
}

// Reset zeros all of memory.
func (mem *Memory) Reset() {
	clear(mem[:])
}
