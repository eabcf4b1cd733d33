package emu_test

import (
	"github.com/sarchlab/rvsim/emu"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoadStoreUnit", func() {
	var (
		rf  *emu.RegFile
		mem *emu.Memory
		ls  *emu.LoadStoreUnit
	)

	BeforeEach(func() {
		rf = &emu.RegFile{}
		mem = emu.NewMemory(1024)
		ls = emu.NewLoadStoreUnit(rf, mem)
	})

	Describe("word store/load", func() {
		It("round-trips through SW/LW", func() {
			rf.WriteReg(1, 0x100)
			rf.WriteReg(2, 0xDEADBEEF)
			Expect(ls.SW(1, 2, 0)).To(Succeed())
			Expect(ls.LW(5, 1, 0)).To(Succeed())
			Expect(rf.ReadReg(5)).To(Equal(uint32(0xDEADBEEF)))
		})
	})

	Describe("sign and zero extension", func() {
		It("LB sign-extends a negative byte", func() {
			rf.WriteReg(1, 0)
			Expect(mem.StoreByte(0, 0xFF)).To(Succeed())
			Expect(ls.LB(2, 1, 0)).To(Succeed())
			Expect(rf.ReadReg(2)).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("LBU zero-extends the same byte", func() {
			rf.WriteReg(1, 0)
			Expect(mem.StoreByte(0, 0xFF)).To(Succeed())
			Expect(ls.LBU(2, 1, 0)).To(Succeed())
			Expect(rf.ReadReg(2)).To(Equal(uint32(0xFF)))
		})
	})

	Describe("out-of-range access", func() {
		It("propagates the memory error", func() {
			rf.WriteReg(1, 2000)
			err := ls.LW(2, 1, 0)
			Expect(err).To(MatchError(emu.ErrOutOfRange))
		})
	})
})
