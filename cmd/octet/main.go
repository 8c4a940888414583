// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ezrec/octet/cpu"
	"github.com/ezrec/octet/emulator"
)

func main() {
	var compile string
	var binary string
	var output string
	var listing bool
	var steps int
	var sp uint
	var verbose bool

	defines := map[string]string{}

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&binary, "b", "", "raw binary image to load")
	flag.StringVar(&output, "o", "", "Save binary image, do not execute")
	flag.BoolVar(&listing, "l", false, "Print listing and labels")
	flag.IntVar(&steps, "n", 0, "Step limit (0 is unlimited)")
	flag.UintVar(&sp, "sp", emulator.STACK_TOP, "Initial stack pointer")
	flag.Func("D", "Predefine name=value", func(arg string) error {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || len(name) == 0 {
			return fmt.Errorf("expected name=value, got %q", arg)
		}
		defines[name] = value
		return nil
	})
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if (len(compile) == 0) == (len(binary) == 0) {
		log.Fatalf("%v: exactly one of -c or -b is required", os.Args[0])
	}

	if sp > 0xffff {
		log.Fatalf("%v: -sp %d out of range", os.Args[0], sp)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.StackTop = uint16(sp)
	emu.StepLimit = steps

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for name, value := range emu.Defines() {
			asm.Predefine(name, value)
		}
		for name, value := range defines {
			asm.Predefine(name, value)
		}

		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	// Load a raw binary image.
	if len(binary) != 0 {
		data, err := os.ReadFile(binary)
		if err != nil {
			log.Fatalf("%v: %v", binary, err)
		}
		emu.Program = cpu.NewProgram(data)
	}

	if listing {
		err := emu.Program.Listing(os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
		for _, label := range emu.Program.Labels() {
			fmt.Printf("%04x  %v\n", emu.Program.Symbols[label], label)
		}
	}

	if len(output) != 0 {
		err := os.WriteFile(output, emu.Program.Binary(), 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	err := emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	err = emu.Run()
	fmt.Print(emu.Cpu.String())
	if err != nil {
		log.Fatal(err)
	}
}
