package cpu

// The stack lives in main memory and grows down from Sp. A 16-bit value
// occupies two bytes with the high byte at the higher address. Sp wraps
// at both ends of memory.

// Push16 pushes a 16-bit value.
func (cpu *Cpu) Push16(mem Bus, value uint16) {
	cpu.Sp--
	mem.Write(cpu.Sp, byte(value>>8))
	cpu.Sp--
	mem.Write(cpu.Sp, byte(value&0xff))
}

// Pop16 pops a 16-bit value.
func (cpu *Cpu) Pop16(mem Bus) (value uint16) {
	low := uint16(mem.Read(cpu.Sp))
	cpu.Sp++
	high := uint16(mem.Read(cpu.Sp))
	cpu.Sp++

	return (high << 8) | low
}

// Peek16 returns the value Pop16 would return, without moving Sp.
func (cpu *Cpu) Peek16(mem Bus) (value uint16) {
	return uint16(mem.Read(cpu.Sp)) | uint16(mem.Read(cpu.Sp+1))<<8
}
