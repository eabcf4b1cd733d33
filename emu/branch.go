package emu

// BranchUnit implements RV32I control transfer. RV32I branches compute
// their predicate directly from the two compared registers; there is no
// flags register to consult (contrast an ARM64 B.cond, which reads PSTATE).
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// JAL performs rd = pc + 4; pc = pc + imm.
func (b *BranchUnit) JAL(rd uint8, imm int32) {
	link := b.regFile.PC + 4
	b.regFile.PC = uint32(int32(b.regFile.PC) + imm)
	b.regFile.WriteReg(rd, link)
}

// JALR performs t = (rs1 + imm) & ^1; rd = pc + 4; pc = t.
func (b *BranchUnit) JALR(rd, rs1 uint8, imm int32) {
	target := (uint32(int32(b.regFile.ReadReg(rs1))+imm)) &^ 1
	link := b.regFile.PC + 4
	b.regFile.PC = target
	b.regFile.WriteReg(rd, link)
}

// Branch evaluates the predicate named by op against rs1/rs2 and, if taken,
// sets pc to pc + imm; otherwise it advances pc by 4. It reports whether the
// branch was taken, for pipeline squash bookkeeping.
func (b *BranchUnit) Branch(op BranchOp, rs1, rs2 uint8, imm int32) bool {
	v1 := b.regFile.ReadReg(rs1)
	v2 := b.regFile.ReadReg(rs2)

	var taken bool
	switch op {
	case BEQ:
		taken = v1 == v2
	case BNE:
		taken = v1 != v2
	case BLT:
		taken = int32(v1) < int32(v2)
	case BGE:
		taken = int32(v1) >= int32(v2)
	case BLTU:
		taken = v1 < v2
	case BGEU:
		taken = v1 >= v2
	}

	if taken {
		b.regFile.PC = uint32(int32(b.regFile.PC) + imm)
	} else {
		b.regFile.PC += 4
	}
	return taken
}

// BranchOp names a branch predicate, independent of the decoder's Op
// enumeration, so the executor can select one without importing insts.Op
// values by name at every call site.
type BranchOp uint8

const (
	BEQ BranchOp = iota
	BNE
	BLT
	BGE
	BLTU
	BGEU
)
