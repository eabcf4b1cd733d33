package emu

// LoadStoreUnit implements RV32I memory access instructions, translating
// register-plus-immediate addressing into the big-endian byte, half-word,
// and word accesses Memory provides.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{regFile: regFile, memory: memory}
}

func (l *LoadStoreUnit) addr(rs1 uint8, imm int32) uint32 {
	return uint32(int32(l.regFile.ReadReg(rs1)) + imm)
}

// LB loads a byte and sign-extends it to 32 bits.
func (l *LoadStoreUnit) LB(rd, rs1 uint8, imm int32) error {
	v, err := l.memory.LoadByte(l.addr(rs1, imm))
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, uint32(int32(int8(v))))
	return nil
}

// LBU loads a byte and zero-extends it to 32 bits.
func (l *LoadStoreUnit) LBU(rd, rs1 uint8, imm int32) error {
	v, err := l.memory.LoadByte(l.addr(rs1, imm))
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, uint32(v))
	return nil
}

// LH loads a half-word and sign-extends it to 32 bits.
func (l *LoadStoreUnit) LH(rd, rs1 uint8, imm int32) error {
	v, err := l.memory.LoadHalf(l.addr(rs1, imm))
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, uint32(int32(int16(v))))
	return nil
}

// LHU loads a half-word and zero-extends it to 32 bits.
func (l *LoadStoreUnit) LHU(rd, rs1 uint8, imm int32) error {
	v, err := l.memory.LoadHalf(l.addr(rs1, imm))
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, uint32(v))
	return nil
}

// LW loads a full word.
func (l *LoadStoreUnit) LW(rd, rs1 uint8, imm int32) error {
	v, err := l.memory.LoadWord(l.addr(rs1, imm))
	if err != nil {
		return err
	}
	l.regFile.WriteReg(rd, v)
	return nil
}

// SB stores the low 8 bits of rs2.
func (l *LoadStoreUnit) SB(rs1, rs2 uint8, imm int32) error {
	return l.memory.StoreByte(l.addr(rs1, imm), uint8(l.regFile.ReadReg(rs2)))
}

// SH stores the low 16 bits of rs2.
func (l *LoadStoreUnit) SH(rs1, rs2 uint8, imm int32) error {
	return l.memory.StoreHalf(l.addr(rs1, imm), uint16(l.regFile.ReadReg(rs2)))
}

// SW stores all 32 bits of rs2.
func (l *LoadStoreUnit) SW(rs1, rs2 uint8, imm int32) error {
	return l.memory.StoreWord(l.addr(rs1, imm), l.regFile.ReadReg(rs2))
}
