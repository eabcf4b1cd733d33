// Package loader provides program loaders for the RV32I simulator.
//
// A loader populates a memory image and reports where execution should
// begin. Three shapes are defined here: an ELF image reader (the only
// fully implemented one), a disassembly-listing reader, and a linker-map
// reader. The latter two satisfy the same Loader interface so callers can
// select a loader uniformly, but they are scaffolded only: they return
// ErrNotImplemented rather than pretending to a behavior that was never
// built.
package loader

import (
	"errors"

	"github.com/sarchlab/rvsim/emu"
)

// ErrNotImplemented is returned by a scaffolded loader.
var ErrNotImplemented = errors.New("loader not implemented")

// ErrLoaderFailure wraps any loader error surfaced to a caller, so the
// simulator's top-level diagnostic can be rendered uniformly regardless of
// which loader failed.
var ErrLoaderFailure = errors.New("failed to load program")

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment of a program image.
type Segment struct {
	// VirtAddr is the address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments of the program.
	Segments []Segment
	// InitialSP is the initial stack pointer value, if the loader
	// determined one. A value of 0 means "let Memory decide" (see
	// emu.Memory.InitialStackPointer).
	InitialSP uint32
	// Layout is the memory layout the loader determined, or nil.
	Layout *emu.MemoryLayout
}

// Loader reads a program image at path and reports its segments and where
// execution should begin. It does not touch memory; LoadInto copies the
// returned Program into an emu.Memory.
type Loader interface {
	Load(path string) (*Program, error)
}

// LoadInto writes every segment of prog into mem, zero-filling each
// segment's BSS tail, and records the entry point / stack pointer / layout
// on mem so that callers constructing an emu.Emulator or a pipeline need
// only pass mem along.
func LoadInto(mem *emu.Memory, prog *Program) error {
	for _, seg := range prog.Segments {
		if err := mem.LoadImage(seg.VirtAddr, seg.Data, seg.MemSize); err != nil {
			return err
		}
	}
	mem.SetEntryPoint(prog.EntryPoint)
	if prog.InitialSP != 0 {
		mem.SetInitialStackPointer(prog.InitialSP)
	}
	if prog.Layout != nil {
		mem.SetLayout(prog.Layout)
	}
	return nil
}
