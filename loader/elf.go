package loader

import (
	"debug/elf"
	"fmt"
	"io"
)

// ELFLoader parses an RV32I ELF binary and returns a Program ready for
// loading into the simulator's memory. This is the only fully live loader
// shape; DisasmLoader and LinkerMapLoader satisfy the same interface but
// are scaffolded.
type ELFLoader struct{}

// NewELFLoader creates an ELFLoader.
func NewELFLoader() *ELFLoader {
	return &ELFLoader{}
}

// Load parses the ELF file at path.
func (l *ELFLoader) Load(path string) (*Program, error) {
	return Load(path)
}

// Load parses an RV32I ELF binary and returns a Program struct ready for
// loading into the simulator's memory.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open ELF file: %v", ErrLoaderFailure, err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%w: not a 32-bit ELF file", ErrLoaderFailure)
	}

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: not a RISC-V ELF file (machine type: %v)", ErrLoaderFailure, f.Machine)
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("%w: failed to read segment at 0x%x: %v", ErrLoaderFailure, phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("%w: short read for segment at 0x%x: got %d bytes, expected %d",
					ErrLoaderFailure, phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	return prog, nil
}
