package emu_test

import (
	"bytes"

	"github.com/sarchlab/rvsim/emu"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// loadProgram stores a sequence of raw instruction words into memory
// starting at base, big-endian per the memory's storage convention.
func loadProgram(mem *emu.Memory, base uint32, words []uint32) {
	for i, w := range words {
		Expect(mem.StoreWord(base+uint32(i*4), w)).To(Succeed())
	}
}

const ret = 0x00008067 // jalr x0, x1, 0

var _ = Describe("Emulator", func() {
	var (
		rf  *emu.RegFile
		mem *emu.Memory
	)

	BeforeEach(func() {
		rf = &emu.RegFile{}
		mem = emu.NewMemory(4096)
	})

	Describe("arithmetic chain", func() {
		It("computes addi/addi/add and halts on ret", func() {
			// addi x1, x0, 5
			// addi x2, x0, 7
			// add  x3, x1, x2
			// ret
			loadProgram(mem, 0, []uint32{
				0x13 | (5 << 20) | (1 << 7),
				0x13 | (7 << 20) | (2 << 7),
				0x33 | (2 << 20) | (1 << 15) | (3 << 7),
				ret,
			})
			e := emu.NewEmulator(rf, mem, emu.WithStderr(&bytes.Buffer{}))
			Expect(e.Run()).To(Succeed())
			Expect(rf.ReadReg(1)).To(Equal(uint32(5)))
			Expect(rf.ReadReg(2)).To(Equal(uint32(7)))
			Expect(rf.ReadReg(3)).To(Equal(uint32(12)))
			Expect(rf.PC).To(Equal(uint32(12)))
		})
	})

	Describe("load/store round-trip", func() {
		It("stores and reloads a word through memory", func() {
			// addi x1, x0, 0x100   (base address)
			// addi x2, x0, 123     (value)
			// sw   x2, 0(x1)
			// lw   x5, 0(x1)
			// ret
			loadProgram(mem, 0, []uint32{
				0x13 | (0x100 << 20) | (1 << 7),
				0x13 | (123 << 20) | (2 << 7),
				0x23 | (2 << 12) | (1 << 15) | (2 << 20),
				0x03 | (2 << 12) | (1 << 15) | (5 << 7),
				ret,
			})
			e := emu.NewEmulator(rf, mem, emu.WithStderr(&bytes.Buffer{}))
			Expect(e.Run()).To(Succeed())
			Expect(rf.ReadReg(5)).To(Equal(uint32(123)))
		})
	})

	Describe("branch taken/not-taken", func() {
		It("skips the next instruction when the branch is taken", func() {
			// addi x1, x0, 3
			// addi x2, x0, 3
			// beq x1, x2, +8   (skip the following addi)
			// addi x3, x0, 99  (skipped)
			// addi x4, x0, 1
			// ret
			loadProgram(mem, 0, []uint32{
				0x13 | (3 << 20) | (1 << 7),
				0x13 | (3 << 20) | (2 << 7),
				0x63 | (1 << 15) | (2 << 20) | (4 << 8),
				0x13 | (99 << 20) | (3 << 7),
				0x13 | (1 << 20) | (4 << 7),
				ret,
			})
			e := emu.NewEmulator(rf, mem, emu.WithStderr(&bytes.Buffer{}))
			Expect(e.Run()).To(Succeed())
			Expect(rf.ReadReg(3)).To(Equal(uint32(0)))
			Expect(rf.ReadReg(4)).To(Equal(uint32(1)))
		})
	})

	Describe("shift semantics", func() {
		It("distinguishes logical and arithmetic right shift", func() {
			loadProgram(mem, 0, []uint32{
				0x37 | (uint32(0x80000) << 12) | (1 << 7), // lui x1, 0x80000
				0x13 | (0x5 << 12) | (1 << 15) | (1 << 20) | (2 << 7),              // srli x2, x1, 1
				0x13 | (0x5 << 12) | (1 << 15) | (1 << 20) | (1 << 30) | (3 << 7),  // srai x3, x1, 1
				ret,
			})
			e := emu.NewEmulator(rf, mem, emu.WithStderr(&bytes.Buffer{}))
			Expect(e.Run()).To(Succeed())
			Expect(rf.ReadReg(2)).To(Equal(uint32(0x40000000)))
			Expect(rf.ReadReg(3)).To(Equal(uint32(0xC0000000)))
		})
	})

	Describe("x0 invariant", func() {
		It("keeps register 0 at zero even after an attempted write", func() {
			loadProgram(mem, 0, []uint32{
				0x13 | (42 << 20) | (0 << 7), // addi x0, x0, 42 (no-op)
				ret,
			})
			e := emu.NewEmulator(rf, mem, emu.WithStderr(&bytes.Buffer{}))
			Expect(e.Run()).To(Succeed())
			Expect(rf.ReadReg(0)).To(Equal(uint32(0)))
		})
	})

	Describe("fatal errors", func() {
		It("reports an out-of-range fetch", func() {
			rf.PC = 8000
			e := emu.NewEmulator(rf, mem, emu.WithStderr(&bytes.Buffer{}))
			err := e.Run()
			Expect(err).To(MatchError(emu.ErrOutOfRange))
		})

		It("reports an unsupported instruction", func() {
			loadProgram(mem, 0, []uint32{0x7F})
			e := emu.NewEmulator(rf, mem, emu.WithStderr(&bytes.Buffer{}))
			err := e.Run()
			Expect(err).To(HaveOccurred())
		})
	})
})
