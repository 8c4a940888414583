// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"iter"
	"log"

	"github.com/ezrec/octet/cpu"
	"github.com/ezrec/octet/internal"
)

const (
	STACK_TOP = 0x0000 // Initial SP; the first push wraps to the top of memory.
)

var _emulator_defines = map[string]uint16{
	"stack_top": STACK_TOP,
}

// Emulator state. CPU + memory + the loaded program listing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Memory   cpu.Memory   // Main memory.
	Program  *cpu.Program // Reference to the currently running program listing.

	StackTop  uint16 // Initial stack pointer applied on Reset.
	StepLimit int    // If non-zero, Run fails after this many steps.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:      cpu.NewCpu(STACK_TOP),
		Program:  &cpu.Program{},
		StackTop: STACK_TOP,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		internal.Defines(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset clears memory, loads the program at address 0, and resets the CPU.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	image := emu.Program.Binary()
	if len(image) > cpu.MEMORY_SIZE {
		err = ErrProgramSize
		return
	}

	emu.Memory.Reset()
	emu.Memory.Load(0, image)

	if emu.Verbose {
		log.Printf("emulator: loaded %d bytes", len(image))
	}

	emu.Cpu.Reset(emu.StackTop)

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Code returns the current instruction code.
func (emu *Emulator) Code() (code cpu.Code) {
	code, _ = cpu.Decode(&emu.Memory, emu.Cpu.Pc)
	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single step of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.Halted {
		done = true
		return
	}

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Step(&emu.Memory)
	if err != nil {
		return
	}

	done = emu.Cpu.Halted

	return
}

// Run ticks the emulator until the CPU halts, a fault occurs, or the
// step limit is exhausted.
func (emu *Emulator) Run() (err error) {
	for steps := 0; ; steps++ {
		if emu.StepLimit > 0 && steps >= emu.StepLimit {
			err = ErrStepLimit
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}
