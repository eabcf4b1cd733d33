package insts_test

import (
	"github.com/sarchlab/rvsim/insts"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Decode", func() {
	Describe("R-type", func() {
		It("decodes add x3, x1, x2", func() {
			// add x3, x1, x2: funct7=0 rs2=2 rs1=1 funct3=0 rd=3 opcode=0x33
			word := uint32(0x00000033) | (2 << 20) | (1 << 15) | (3 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
		})

		It("decodes sub using funct7 0x20", func() {
			word := uint32(0x33) | (0x20 << 25) | (2 << 20) | (1 << 15) | (3 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSUB))
		})

		It("decodes mul using funct7 0x01", func() {
			word := uint32(0x33) | (0x01 << 25) | (2 << 20) | (1 << 15) | (3 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMUL))
		})

		It("decodes div using funct3=0x4 funct7=0x01", func() {
			word := uint32(0x33) | (0x01 << 25) | (2 << 20) | (1 << 15) | (0x4 << 12) | (3 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpDIV))
		})
	})

	Describe("I-type", func() {
		It("decodes addi with a positive immediate", func() {
			// addi x1, x0, 5
			word := uint32(0x13) | (5 << 20) | (1 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int32(5)))
		})

		It("sign-extends a negative immediate", func() {
			// addi x1, x0, -1  (imm field = 0xFFF)
			word := uint32(0x13) | (0xFFF << 20) | (1 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Imm).To(Equal(int32(-1)))
		})

		It("distinguishes srai from srli via bit 30", func() {
			srli := uint32(0x13) | (0x5 << 12) | (4 << 7)
			inst, err := insts.Decode(srli)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSRLI))

			srai := srli | (1 << 30)
			inst, err = insts.Decode(srai)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSRAI))
		})

		It("decodes loads by funct3", func() {
			lw := uint32(0x03) | (0x2 << 12)
			inst, err := insts.Decode(lw)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpLW))
		})

		It("decodes jalr", func() {
			word := uint32(0x67) | (1 << 7) | (2 << 15)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
		})
	})

	Describe("S-type", func() {
		It("decodes sw with a split immediate", func() {
			// sw x2, 4(x1): imm=4 -> imm[11:5]=0 imm[4:0]=4
			word := uint32(0x23) | (0x2 << 12) | (1 << 15) | (2 << 20) | (4 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(4)))
		})
	})

	Describe("B-type", func() {
		It("decodes beq with a positive offset", func() {
			// beq x1, x2, +8: imm=8 -> bit3 set, imm[4:1]=0100 at word[11:8]
			word := uint32(0x63) | (1 << 15) | (2 << 20) | (8 >> 1 << 8)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Imm).To(Equal(int32(8)))
		})
	})

	Describe("U-type", func() {
		It("decodes lui", func() {
			word := uint32(0x37) | (0x12345 << 12) | (1 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Imm).To(Equal(int32(0x12345000)))
		})

		It("decodes auipc", func() {
			word := uint32(0x17) | (0x1 << 12) | (1 << 7)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpAUIPC))
		})
	})

	Describe("J-type", func() {
		It("decodes jal with a positive offset", func() {
			// jal x1, +0x20
			word := uint32(0x6F) | (1 << 7) | (uint32(0x20) << 20)
			inst, err := insts.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int32(0x20)))
		})
	})

	Describe("round-trip", func() {
		It("re-encodes a decoded instruction back to its original word", func() {
			words := []uint32{
				0x00000033 | (2 << 20) | (1 << 15) | (3 << 7),            // add x3, x1, x2
				0x33 | (0x20 << 25) | (2 << 20) | (1 << 15) | (3 << 7),   // sub x3, x1, x2
				0x33 | (0x01 << 25) | (2 << 20) | (1 << 15) | (3 << 7),   // mul x3, x1, x2
				0x13 | (0xFFF << 20) | (1 << 7),                          // addi x1, x0, -1
				0x03 | (0x2 << 12) | (1 << 15) | (5 << 7) | (4 << 20),    // lw x5, 4(x1)
				0x23 | (1 << 15) | (2 << 20) | (4 << 7),                  // sb x2, 4(x1)
				0x63 | (1 << 15) | (2 << 20) | (4 << 8),                  // beq x1, x2, +8
				0x37 | (uint32(0x12345) << 12) | (1 << 7),                // lui x1, 0x12345
				0x17 | (uint32(0x1) << 12) | (1 << 7),                    // auipc x1, 1
				0x6F | (1 << 7) | (uint32(0x20) << 20),                   // jal x1, +0x20
				0x67 | (1 << 7) | (2 << 15),                              // jalr x1, 0(x2)
			}

			for _, word := range words {
				inst, err := insts.Decode(word)
				Expect(err).NotTo(HaveOccurred())
				Expect(encode(inst)).To(Equal(word), "word 0x%08x", word)
			}
		})
	})

	Describe("error cases", func() {
		It("rejects the all-zero word", func() {
			_, err := insts.Decode(0)
			Expect(err).To(MatchError(insts.ErrUnsupportedInstruction))
		})

		It("rejects an unrecognized opcode", func() {
			_, err := insts.Decode(0x7F)
			Expect(err).To(MatchError(insts.ErrUnsupportedInstruction))
		})

		It("rejects a recognized opcode with an unrecognized funct3", func() {
			word := uint32(0x63) | (0x2 << 12)
			_, err := insts.Decode(word)
			Expect(err).To(MatchError(insts.ErrUnsupportedInstruction))
		})
	})
})
