package pipeline

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// fetchedWord is the Fetch -> Decode payload.
type fetchedWord struct {
	word uint32
}

// decodedInst is the Decode -> Execute payload. Register operands are
// filled in by the pipeline driver once any hazard has cleared, so execute
// itself never touches the shared register file, keeping write-back the
// sole writer.
type decodedInst struct {
	inst *insts.Instruction
	rs1V uint32
	rs2V uint32
}

// executedInst is the Execute -> Memory payload.
type executedInst struct {
	inst      *insts.Instruction
	aluResult uint32
	rs2V      uint32
}

// writebackItem is the Memory -> Write-Back payload.
type writebackItem struct {
	rd       uint8
	value    uint32
	hasWrite bool
}

// FetchStage reads the next instruction word from memory.
type FetchStage struct {
	memory *emu.Memory
}

// NewFetchStage creates a FetchStage reading from the given memory.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{memory: memory}
}

// Fetch reads the instruction word at pc.
func (s *FetchStage) Fetch(pc uint32) (uint32, error) {
	return s.memory.LoadWord(pc)
}

// DecodeStage decodes a fetched word. Its regFile is read by the pipeline
// driver, not here: operands can only be read safely once any
// read-after-write hazard has cleared, which Decode itself has no way to
// know.
type DecodeStage struct {
	regFile *emu.RegFile
}

// NewDecodeStage creates a DecodeStage reading from the given register file.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{regFile: regFile}
}

// Decode decodes word. rs1V/rs2V are left zero; the pipeline driver fills
// them in once it is safe to read the register file.
func (s *DecodeStage) Decode(word uint32) (*decodedInst, error) {
	inst, err := insts.Decode(word)
	if err != nil {
		return nil, err
	}
	return &decodedInst{inst: inst}, nil
}

// ExecuteStage computes ALU results and branch/jump targets. It never
// writes the register file directly: results are handed to Memory and then
// Write-Back so every mutation happens from a single stage.
type ExecuteStage struct{}

// NewExecuteStage creates an ExecuteStage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// executeOutcome carries the result of Execute, including any redirect the
// fetch stage must apply on a taken branch or jump.
type executeOutcome struct {
	result     *executedInst
	redirect   bool
	redirectTo uint32
}

// Execute computes the semantic result of d, given its pc.
func (s *ExecuteStage) Execute(pc uint32, d *decodedInst) executeOutcome {
	inst := d.inst
	rs1V, rs2V := d.rs1V, d.rs2V
	imm := uint32(inst.Imm)

	alu := func(v uint32) executeOutcome {
		return executeOutcome{result: &executedInst{inst: inst, aluResult: v, rs2V: rs2V}}
	}

	switch inst.Op {
	case insts.OpADD:
		return alu(rs1V + rs2V)
	case insts.OpSUB:
		return alu(rs1V - rs2V)
	case insts.OpSLL:
		return alu(rs1V << (rs2V & 0x1F))
	case insts.OpSLT:
		return alu(boolToWord(int32(rs1V) < int32(rs2V)))
	case insts.OpSLTU:
		return alu(boolToWord(rs1V < rs2V))
	case insts.OpXOR:
		return alu(rs1V ^ rs2V)
	case insts.OpSRL:
		return alu(rs1V >> (rs2V & 0x1F))
	case insts.OpSRA:
		return alu(uint32(int32(rs1V) >> (rs2V & 0x1F)))
	case insts.OpOR:
		return alu(rs1V | rs2V)
	case insts.OpAND:
		return alu(rs1V & rs2V)
	case insts.OpMUL:
		return alu(rs1V * rs2V)
	case insts.OpMULH:
		return alu(uint32((int64(int32(rs1V)) * int64(int32(rs2V))) >> 32))
	case insts.OpMULHSU:
		return alu(uint32((int64(int32(rs1V)) * int64(rs2V)) >> 32))
	case insts.OpMULHU:
		return alu(uint32((uint64(rs1V) * uint64(rs2V)) >> 32))
	case insts.OpDIV:
		return alu(divSigned(rs1V, rs2V))
	case insts.OpDIVU:
		return alu(divUnsigned(rs1V, rs2V))
	case insts.OpREM:
		return alu(remSigned(rs1V, rs2V))
	case insts.OpREMU:
		return alu(remUnsigned(rs1V, rs2V))

	case insts.OpADDI:
		return alu(rs1V + imm)
	case insts.OpSLTI:
		return alu(boolToWord(int32(rs1V) < inst.Imm))
	case insts.OpSLTIU:
		return alu(boolToWord(rs1V < imm))
	case insts.OpXORI:
		return alu(rs1V ^ imm)
	case insts.OpORI:
		return alu(rs1V | imm)
	case insts.OpANDI:
		return alu(rs1V & imm)
	case insts.OpSLLI:
		return alu(rs1V << (imm & 0x1F))
	case insts.OpSRLI:
		return alu(rs1V >> (imm & 0x1F))
	case insts.OpSRAI:
		return alu(uint32(int32(rs1V) >> (imm & 0x1F)))

	case insts.OpLB, insts.OpLBU, insts.OpLH, insts.OpLHU, insts.OpLW:
		return alu(rs1V + imm) // effective address; Memory stage performs the access
	case insts.OpSB, insts.OpSH, insts.OpSW:
		return alu(rs1V + imm)

	case insts.OpLUI:
		return alu(imm)
	case insts.OpAUIPC:
		return alu(pc + imm)

	case insts.OpJAL:
		target := uint32(int32(pc) + inst.Imm)
		return executeOutcome{
			result:     &executedInst{inst: inst, aluResult: pc + 4},
			redirect:   true,
			redirectTo: target,
		}
	case insts.OpJALR:
		target := (rs1V + imm) &^ 1
		return executeOutcome{
			result:     &executedInst{inst: inst, aluResult: pc + 4},
			redirect:   true,
			redirectTo: target,
		}
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU:
		taken := evalBranch(inst.Op, rs1V, rs2V)
		out := executeOutcome{result: &executedInst{inst: inst}}
		if taken {
			out.redirect = true
			out.redirectTo = uint32(int32(pc) + inst.Imm)
		}
		return out
	}

	return executeOutcome{result: &executedInst{inst: inst}}
}

func evalBranch(op insts.Op, v1, v2 uint32) bool {
	switch op {
	case insts.OpBEQ:
		return v1 == v2
	case insts.OpBNE:
		return v1 != v2
	case insts.OpBLT:
		return int32(v1) < int32(v2)
	case insts.OpBGE:
		return int32(v1) >= int32(v2)
	case insts.OpBLTU:
		return v1 < v2
	case insts.OpBGEU:
		return v1 >= v2
	}
	return false
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func divSigned(a, b uint32) uint32 {
	v1, v2 := int32(a), int32(b)
	switch {
	case v2 == 0:
		return 0xFFFFFFFF
	case v1 == -0x80000000 && v2 == -1:
		return a
	default:
		return uint32(v1 / v2)
	}
}

func divUnsigned(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	return a / b
}

func remSigned(a, b uint32) uint32 {
	v1, v2 := int32(a), int32(b)
	switch {
	case v2 == 0:
		return a
	case v1 == -0x80000000 && v2 == -1:
		return 0
	default:
		return uint32(v1 % v2)
	}
}

func remUnsigned(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}

// MemoryStage performs the data memory access, if any, that a load or
// store instruction needs, and prepares the value write-back will commit.
type MemoryStage struct {
	memory *emu.Memory
}

// NewMemoryStage creates a MemoryStage accessing the given memory.
func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{memory: memory}
}

// Access performs e's memory operation, if any, and returns the value and
// destination register write-back should commit.
func (s *MemoryStage) Access(e *executedInst) (writebackItem, error) {
	inst := e.inst
	switch inst.Op {
	case insts.OpLB:
		v, err := s.memory.LoadByte(e.aluResult)
		if err != nil {
			return writebackItem{}, err
		}
		return writebackItem{rd: inst.Rd, value: uint32(int32(int8(v))), hasWrite: true}, nil
	case insts.OpLBU:
		v, err := s.memory.LoadByte(e.aluResult)
		if err != nil {
			return writebackItem{}, err
		}
		return writebackItem{rd: inst.Rd, value: uint32(v), hasWrite: true}, nil
	case insts.OpLH:
		v, err := s.memory.LoadHalf(e.aluResult)
		if err != nil {
			return writebackItem{}, err
		}
		return writebackItem{rd: inst.Rd, value: uint32(int32(int16(v))), hasWrite: true}, nil
	case insts.OpLHU:
		v, err := s.memory.LoadHalf(e.aluResult)
		if err != nil {
			return writebackItem{}, err
		}
		return writebackItem{rd: inst.Rd, value: uint32(v), hasWrite: true}, nil
	case insts.OpLW:
		v, err := s.memory.LoadWord(e.aluResult)
		if err != nil {
			return writebackItem{}, err
		}
		return writebackItem{rd: inst.Rd, value: v, hasWrite: true}, nil
	case insts.OpSB:
		if err := s.memory.StoreByte(e.aluResult, uint8(e.rs2V)); err != nil {
			return writebackItem{}, err
		}
		return writebackItem{}, nil
	case insts.OpSH:
		if err := s.memory.StoreHalf(e.aluResult, uint16(e.rs2V)); err != nil {
			return writebackItem{}, err
		}
		return writebackItem{}, nil
	case insts.OpSW:
		if err := s.memory.StoreWord(e.aluResult, e.rs2V); err != nil {
			return writebackItem{}, err
		}
		return writebackItem{}, nil
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU:
		return writebackItem{}, nil
	default:
		return writebackItem{rd: inst.Rd, value: e.aluResult, hasWrite: inst.Rd != 0}, nil
	}
}

// WriteBackStage commits a value to the register file.
type WriteBackStage struct {
	regFile *emu.RegFile
}

// NewWriteBackStage creates a WriteBackStage writing to the given register file.
func NewWriteBackStage(regFile *emu.RegFile) *WriteBackStage {
	return &WriteBackStage{regFile: regFile}
}

// Commit writes item's value, if any, to the register file.
func (s *WriteBackStage) Commit(item writebackItem) {
	if item.hasWrite {
		s.regFile.WriteReg(item.rd, item.value)
	}
}
