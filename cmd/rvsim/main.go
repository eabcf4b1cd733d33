// Package main provides the entry point for rvsim.
// rvsim is a functional and pipelined simulator for RV32I plus the
// multiply/divide subset of the M extension.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var (
	usePipeline = flag.Bool("pipeline", false, "Run in pipelined timing mode instead of the simple interpreter")
	memSize     = flag.Int("mem-size", emu.DefaultMemorySize, "Guest memory size in bytes")
	maxInstr    = flag.Uint64("max-instructions", 0, "Max instructions to execute in simple mode (0 = unlimited)")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rvsim [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	mem := emu.NewMemory(*memSize)
	if err := loader.LoadInto(mem, prog); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading segments: %v\n", err)
		os.Exit(1)
	}

	if *usePipeline {
		os.Exit(runPipelined(mem, prog))
	}
	os.Exit(runSimple(mem, prog))
}

// runSimple runs the program on the single-threaded interpreter.
func runSimple(mem *emu.Memory, prog *loader.Program) int {
	regFile := &emu.RegFile{PC: prog.EntryPoint}
	regFile.WriteReg(2, mem.InitialStackPointer())

	opts := []emu.EmulatorOption{}
	if *maxInstr > 0 {
		opts = append(opts, emu.WithMaxInstructions(*maxInstr))
	}

	emulator := emu.NewEmulator(regFile, mem, opts...)
	err := emulator.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		if *verbose {
			dumpRegs(regFile)
		}
		return 1
	}

	if *verbose {
		fmt.Printf("\nInstructions executed: %d\n", emulator.InstructionCount())
		dumpRegs(regFile)
	}
	return 0
}

// runPipelined runs the program on the five-stage pipeline.
func runPipelined(mem *emu.Memory, prog *loader.Program) int {
	regFile := &emu.RegFile{PC: prog.EntryPoint}
	regFile.WriteReg(2, mem.InitialStackPointer())

	pipe := pipeline.NewPipeline(regFile, mem)
	err := pipe.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		if *verbose {
			dumpRegs(regFile)
		}
		return 1
	}

	if *verbose {
		stats := pipe.Stats()
		fmt.Printf("\nInstructions retired: %d\n", stats.Instructions)
		fmt.Printf("Cycles: %d\n", stats.Cycles)
		fmt.Printf("CPI: %.2f\n", stats.CPI())
		fmt.Printf("Stalls: %d\n", stats.Stalls)
		fmt.Printf("Flushes: %d\n", stats.Flushes)
		dumpRegs(regFile)
	}
	return 0
}

func dumpRegs(regFile *emu.RegFile) {
	fmt.Printf("\nRegisters:\n")
	for i := 0; i < 32; i++ {
		fmt.Printf("  %-4s = 0x%08X", emu.RegNames[i], regFile.ReadReg(uint8(i)))
		if i%4 == 3 {
			fmt.Println()
		}
	}
	fmt.Printf("  pc   = 0x%08X\n", regFile.PC)
}
