package insts_test

// encode is a test-only helper: the production decoder is intentionally
// one-directional, so the round-trip property (Decode(Encode(I)) == I) is
// verified here by re-assembling a word from an already-decoded
// Instruction's fields rather than by shipping a production encoder.

import "github.com/sarchlab/rvsim/insts"

func encode(inst *insts.Instruction) uint32 {
	switch inst.Format {
	case insts.FormatR:
		return uint32(opcodeFor(inst.Op)) |
			uint32(inst.Funct3)<<12 | uint32(inst.Funct7)<<25 |
			uint32(inst.Rd)<<7 | uint32(inst.Rs1)<<15 | uint32(inst.Rs2)<<20
	case insts.FormatI:
		return uint32(opcodeFor(inst.Op)) |
			uint32(inst.Funct3)<<12 | uint32(inst.Rd)<<7 | uint32(inst.Rs1)<<15 |
			(uint32(inst.Imm)&0xFFF)<<20
	case insts.FormatS:
		u := uint32(inst.Imm)
		lo := u & 0x1F
		hi := (u >> 5) & 0x7F
		return 0x23 | uint32(inst.Funct3)<<12 | uint32(inst.Rs1)<<15 | uint32(inst.Rs2)<<20 |
			lo<<7 | hi<<25
	case insts.FormatB:
		u := uint32(inst.Imm)
		b11 := (u >> 11) & 1
		b4_1 := (u >> 1) & 0xF
		b10_5 := (u >> 5) & 0x3F
		b12 := (u >> 12) & 1
		return 0x63 | uint32(inst.Funct3)<<12 | uint32(inst.Rs1)<<15 | uint32(inst.Rs2)<<20 |
			b11<<7 | b4_1<<8 | b10_5<<25 | b12<<31
	case insts.FormatU:
		opcode := uint32(0x37)
		if inst.Op == insts.OpAUIPC {
			opcode = 0x17
		}
		return opcode | uint32(inst.Rd)<<7 | (uint32(inst.Imm) & 0xFFFFF000)
	case insts.FormatJ:
		u := uint32(inst.Imm)
		b20 := (u >> 20) & 1
		b10_1 := (u >> 1) & 0x3FF
		b11 := (u >> 11) & 1
		b19_12 := (u >> 12) & 0xFF
		return 0x6F | uint32(inst.Rd)<<7 | b19_12<<12 | b11<<20 | b10_1<<21 | b20<<31
	default:
		return 0
	}
}

func opcodeFor(op insts.Op) uint32 {
	switch op {
	case insts.OpADD, insts.OpSUB, insts.OpSLL, insts.OpSLT, insts.OpSLTU,
		insts.OpXOR, insts.OpSRL, insts.OpSRA, insts.OpOR, insts.OpAND,
		insts.OpMUL, insts.OpMULH, insts.OpMULHSU, insts.OpMULHU,
		insts.OpDIV, insts.OpDIVU, insts.OpREM, insts.OpREMU:
		return 0x33
	case insts.OpLB, insts.OpLBU, insts.OpLH, insts.OpLHU, insts.OpLW:
		return 0x03
	case insts.OpADDI, insts.OpSLTI, insts.OpSLTIU, insts.OpXORI, insts.OpORI,
		insts.OpANDI, insts.OpSLLI, insts.OpSRLI, insts.OpSRAI:
		return 0x13
	case insts.OpJALR:
		return 0x67
	default:
		return 0
	}
}
