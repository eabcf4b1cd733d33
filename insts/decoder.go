package insts

import "fmt"

// Op identifies the semantic operation a decoded instruction performs.
type Op uint16

const (
	// OpUnknown marks an instruction that failed to decode.
	OpUnknown Op = iota

	// Integer register-register arithmetic and logic (R-type).
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// Multiply/divide subset of the M extension (R-type).
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// Register-immediate arithmetic and logic (I-type).
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// Loads (I-type) and stores (S-type).
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW

	// Control transfer.
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Upper-immediate (U-type).
	OpLUI
	OpAUIPC
)

// Format identifies the encoding shape an instruction was decoded from.
type Format uint8

const (
	// FormatUnknown marks an instruction that failed to decode.
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Opcode values from the low 7 bits of the instruction word.
const (
	opcodeR      = 0x33
	opcodeLoad   = 0x03
	opcodeALUImm = 0x13
	opcodeJALR   = 0x67
	opcodeStore  = 0x23
	opcodeBranch = 0x63
	opcodeLUI    = 0x37
	opcodeAUIPC  = 0x17
	opcodeJAL    = 0x6F
)

// Instruction is a decoded RV32I (+ MUL/DIV) instruction. Not every field is
// meaningful for every Format; see the field comments for which formats
// populate which fields.
type Instruction struct {
	Op     Op
	Format Format

	// Raw is the original 32-bit instruction word, kept for diagnostics.
	Raw uint32

	// Rd, Rs1, Rs2 are register indices, populated per Format:
	//   R: Rd, Rs1, Rs2
	//   I: Rd, Rs1
	//   S: Rs1, Rs2
	//   B: Rs1, Rs2
	//   U: Rd
	//   J: Rd
	Rd, Rs1, Rs2 uint8

	// Imm is the sign-extended immediate for I/S/B/J formats, or the
	// already-shifted 32-bit immediate for U format.
	Imm int32

	Funct3 uint8
	Funct7 uint8
}

// Decoder wraps the package-level Decode. It carries no state; it exists so
// callers can hold a value with method syntax, matching the rest of this
// package's construction style.
type Decoder struct{}

// NewDecoder creates a new Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RISC-V instruction word. It returns an error
// wrapping ErrUnsupportedInstruction for a zero word, an unrecognized
// opcode, or a recognized opcode paired with an unrecognized funct3/funct7.
func (d *Decoder) Decode(word uint32) (*Instruction, error) {
	return Decode(word)
}

// Decode decodes a 32-bit RISC-V instruction word into an Instruction.
func Decode(word uint32) (*Instruction, error) {
	if word == 0 {
		return nil, fmt.Errorf("%w: instruction word is zero", ErrUnsupportedInstruction)
	}

	opcode := word & 0x7F

	switch opcode {
	case opcodeR:
		return decodeR(word)
	case opcodeLoad:
		return decodeLoad(word)
	case opcodeALUImm:
		return decodeALUImm(word)
	case opcodeJALR:
		return decodeJALR(word)
	case opcodeStore:
		return decodeStore(word)
	case opcodeBranch:
		return decodeBranch(word)
	case opcodeLUI:
		return decodeU(word, OpLUI)
	case opcodeAUIPC:
		return decodeU(word, OpAUIPC)
	case opcodeJAL:
		return decodeJAL(word)
	default:
		return nil, fmt.Errorf("%w: unrecognized opcode 0x%02x (word 0x%08x)", ErrUnsupportedInstruction, opcode, word)
	}
}

func rd(word uint32) uint8     { return uint8((word >> 7) & 0x1F) }
func rs1(word uint32) uint8    { return uint8((word >> 15) & 0x1F) }
func rs2(word uint32) uint8    { return uint8((word >> 20) & 0x1F) }
func funct3(word uint32) uint8 { return uint8((word >> 12) & 0x7) }
func funct7(word uint32) uint8 { return uint8((word >> 25) & 0x7F) }

func decodeR(word uint32) (*Instruction, error) {
	f3 := funct3(word)
	f7 := funct7(word)

	var op Op
	switch {
	case f3 == 0x0 && f7 == 0x00:
		op = OpADD
	case f3 == 0x0 && f7 == 0x20:
		op = OpSUB
	case f3 == 0x0 && f7 == 0x01:
		op = OpMUL
	case f3 == 0x1 && f7 == 0x00:
		op = OpSLL
	case f3 == 0x1 && f7 == 0x01:
		op = OpMULH
	case f3 == 0x2 && f7 == 0x00:
		op = OpSLT
	case f3 == 0x2 && f7 == 0x01:
		op = OpMULHSU
	case f3 == 0x3 && f7 == 0x00:
		op = OpSLTU
	case f3 == 0x3 && f7 == 0x01:
		op = OpMULHU
	case f3 == 0x4 && f7 == 0x00:
		op = OpXOR
	case f3 == 0x4 && f7 == 0x01:
		op = OpDIV
	case f3 == 0x5 && f7 == 0x00:
		op = OpSRL
	case f3 == 0x5 && f7 == 0x20:
		op = OpSRA
	case f3 == 0x5 && f7 == 0x01:
		op = OpDIVU
	case f3 == 0x6 && f7 == 0x00:
		op = OpOR
	case f3 == 0x6 && f7 == 0x01:
		op = OpREM
	case f3 == 0x7 && f7 == 0x00:
		op = OpAND
	case f3 == 0x7 && f7 == 0x01:
		op = OpREMU
	default:
		return nil, fmt.Errorf("%w: unrecognized R-type funct3=0x%x funct7=0x%x (word 0x%08x)", ErrUnsupportedInstruction, f3, f7, word)
	}

	return &Instruction{
		Op: op, Format: FormatR, Raw: word,
		Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word),
		Funct3: f3, Funct7: f7,
	}, nil
}

// signExtend extends a value of the given bit width to a signed 32-bit int.
func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}

func immI(word uint32) int32 {
	return signExtend(word>>20, 12)
}

func decodeLoad(word uint32) (*Instruction, error) {
	f3 := funct3(word)
	var op Op
	switch f3 {
	case 0x0:
		op = OpLB
	case 0x1:
		op = OpLH
	case 0x2:
		op = OpLW
	case 0x4:
		op = OpLBU
	case 0x5:
		op = OpLHU
	default:
		return nil, fmt.Errorf("%w: unrecognized load funct3=0x%x (word 0x%08x)", ErrUnsupportedInstruction, f3, word)
	}
	return &Instruction{
		Op: op, Format: FormatI, Raw: word,
		Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Funct3: f3,
	}, nil
}

func decodeALUImm(word uint32) (*Instruction, error) {
	f3 := funct3(word)
	imm := immI(word)

	var op Op
	switch f3 {
	case 0x0:
		op = OpADDI
	case 0x1:
		op = OpSLLI
	case 0x2:
		op = OpSLTI
	case 0x3:
		op = OpSLTIU
	case 0x4:
		op = OpXORI
	case 0x5:
		// Bit 30 of the instruction word (equivalently bit 10 of the
		// 12-bit immediate field) distinguishes SRAI from SRLI.
		if word&0x40000000 != 0 {
			op = OpSRAI
		} else {
			op = OpSRLI
		}
	case 0x6:
		op = OpORI
	case 0x7:
		op = OpANDI
	default:
		return nil, fmt.Errorf("%w: unrecognized ALU-immediate funct3=0x%x (word 0x%08x)", ErrUnsupportedInstruction, f3, word)
	}

	return &Instruction{
		Op: op, Format: FormatI, Raw: word,
		Rd: rd(word), Rs1: rs1(word), Imm: imm, Funct3: f3,
	}, nil
}

func decodeJALR(word uint32) (*Instruction, error) {
	if funct3(word) != 0x0 {
		return nil, fmt.Errorf("%w: unrecognized JALR funct3=0x%x (word 0x%08x)", ErrUnsupportedInstruction, funct3(word), word)
	}
	return &Instruction{
		Op: OpJALR, Format: FormatI, Raw: word,
		Rd: rd(word), Rs1: rs1(word), Imm: immI(word),
	}, nil
}

func decodeStore(word uint32) (*Instruction, error) {
	f3 := funct3(word)
	var op Op
	switch f3 {
	case 0x0:
		op = OpSB
	case 0x1:
		op = OpSH
	case 0x2:
		op = OpSW
	default:
		return nil, fmt.Errorf("%w: unrecognized store funct3=0x%x (word 0x%08x)", ErrUnsupportedInstruction, f3, word)
	}

	imm := (word>>7)&0x1F | ((word >> 25) << 5)
	return &Instruction{
		Op: op, Format: FormatS, Raw: word,
		Rs1: rs1(word), Rs2: rs2(word), Imm: signExtend(imm, 12), Funct3: f3,
	}, nil
}

func decodeBranch(word uint32) (*Instruction, error) {
	f3 := funct3(word)
	var op Op
	switch f3 {
	case 0x0:
		op = OpBEQ
	case 0x1:
		op = OpBNE
	case 0x4:
		op = OpBLT
	case 0x5:
		op = OpBGE
	case 0x6:
		op = OpBLTU
	case 0x7:
		op = OpBGEU
	default:
		return nil, fmt.Errorf("%w: unrecognized branch funct3=0x%x (word 0x%08x)", ErrUnsupportedInstruction, f3, word)
	}

	imm := (word>>7)&0x1E |
		((word >> 25) & 0x3F << 5) |
		((word & 0x80) << 4) |
		((word & 0x80000000) >> 19)
	return &Instruction{
		Op: op, Format: FormatB, Raw: word,
		Rs1: rs1(word), Rs2: rs2(word), Imm: signExtend(imm, 13), Funct3: f3,
	}, nil
}

func decodeU(word uint32, op Op) (*Instruction, error) {
	return &Instruction{
		Op: op, Format: FormatU, Raw: word,
		Rd: rd(word), Imm: int32(word & 0xFFFFF000),
	}, nil
}

func decodeJAL(word uint32) (*Instruction, error) {
	imm := (word>>20)&0x7FE |
		((word & 0x00100000) >> 9) |
		(word & 0x000FF000) |
		((word & 0x80000000) >> 11)
	return &Instruction{
		Op: OpJAL, Format: FormatJ, Raw: word,
		Rd: rd(word), Imm: signExtend(imm, 21),
	}, nil
}
