package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/rvsim/insts"
)

// terminator is the 32-bit word (JALR x0, x1, 0, i.e. "ret") that halts
// execution. A real, non-leaf program can legitimately contain this word
// before its final return; this simulator does not distinguish that case
// from end-of-program (see DESIGN.md and the distilled spec's own §9).
const terminator = 0x00008067

// StepResult reports the outcome of a single Step.
type StepResult struct {
	// Exited is true once the terminator word has been fetched.
	Exited bool
	// Err holds a fatal error, if one occurred. Exited and Err are never
	// both set.
	Err error
}

// EmulatorOption configures an Emulator at construction time.
type EmulatorOption func(*Emulator)

// WithStdout overrides the Emulator's stdout writer. Defaults to os.Stdout.
// The Emulator stores this writer but writes nothing to it.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) { e.stdout = w }
}

// WithStderr overrides the writer used for fatal-error diagnostics.
// Defaults to os.Stderr.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) { e.stderr = w }
}

// WithMaxInstructions bounds the number of instructions Run will execute
// before giving up, guarding against runaway programs that never reach the
// terminator. 0 (the default) means unlimited.
func WithMaxInstructions(n uint64) EmulatorOption {
	return func(e *Emulator) { e.maxInstructions = n }
}

// Emulator is the single-threaded interpreter: fetch, decode, execute,
// memory access, and register write-back happen in program order within
// one Step, with no suspension.
type Emulator struct {
	regFile *RegFile
	memory  *Memory

	alu       *ALU
	branch    *BranchUnit
	loadStore *LoadStoreUnit

	stdout io.Writer
	stderr io.Writer

	instructionCount uint64
	maxInstructions  uint64
}

// NewEmulator creates an Emulator over the given register file and memory.
func NewEmulator(regFile *RegFile, memory *Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: regFile,
		memory:  memory,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	e.alu = NewALU(regFile)
	e.branch = NewBranchUnit(regFile)
	e.loadStore = NewLoadStoreUnit(regFile, memory)

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile { return e.regFile }

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory { return e.memory }

// InstructionCount returns the number of instructions executed so far.
func (e *Emulator) InstructionCount() uint64 { return e.instructionCount }

// Step fetches, decodes, and executes exactly one instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions != 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: &FatalError{PC: e.regFile.PC, Err: errors.New("max instruction count exceeded")}}
	}

	word, err := e.memory.LoadWord(e.regFile.PC)
	if err != nil {
		return StepResult{Err: &FatalError{PC: e.regFile.PC, Err: err}}
	}

	if word == terminator {
		return StepResult{Exited: true}
	}

	inst, err := insts.Decode(word)
	if err != nil {
		return StepResult{Err: &FatalError{PC: e.regFile.PC, Word: word, Err: err}}
	}

	if err := e.execute(inst); err != nil {
		return StepResult{Err: &FatalError{PC: e.regFile.PC, Word: word, Err: err}}
	}

	e.instructionCount++
	return StepResult{}
}

// Run steps the emulator until the terminator is reached or a fatal error
// occurs, returning the error (nil on normal termination).
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Exited {
			return nil
		}
		if result.Err != nil {
			fmt.Fprintf(e.stderr, "rvsim: %v\n", result.Err)
			return result.Err
		}
	}
}

// execute dispatches a decoded instruction to its semantic handler.
// Non-branch/jump instructions advance pc by 4 after the switch; branch and
// jump handlers set pc directly and the switch returns before the trailing
// increment.
func (e *Emulator) execute(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpADD:
		e.alu.ADD(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSUB:
		e.alu.SUB(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSLL:
		e.alu.SLL(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSLT:
		e.alu.SLT(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSLTU:
		e.alu.SLTU(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpXOR:
		e.alu.XOR(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSRL:
		e.alu.SRL(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSRA:
		e.alu.SRA(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpOR:
		e.alu.OR(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpAND:
		e.alu.AND(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMUL:
		e.alu.MUL(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMULH:
		e.alu.MULH(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMULHSU:
		e.alu.MULHSU(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpMULHU:
		e.alu.MULHU(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpDIV:
		e.alu.DIV(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpDIVU:
		e.alu.DIVU(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpREM:
		e.alu.REM(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpREMU:
		e.alu.REMU(inst.Rd, inst.Rs1, inst.Rs2)

	case insts.OpADDI:
		e.alu.ADDI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSLTI:
		e.alu.SLTI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSLTIU:
		e.alu.SLTIU(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpXORI:
		e.alu.XORI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpORI:
		e.alu.ORI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpANDI:
		e.alu.ANDI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSLLI:
		e.alu.SLLI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSRLI:
		e.alu.SRLI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSRAI:
		e.alu.SRAI(inst.Rd, inst.Rs1, inst.Imm)

	case insts.OpLB:
		if err := e.loadStore.LB(inst.Rd, inst.Rs1, inst.Imm); err != nil {
			return err
		}
	case insts.OpLBU:
		if err := e.loadStore.LBU(inst.Rd, inst.Rs1, inst.Imm); err != nil {
			return err
		}
	case insts.OpLH:
		if err := e.loadStore.LH(inst.Rd, inst.Rs1, inst.Imm); err != nil {
			return err
		}
	case insts.OpLHU:
		if err := e.loadStore.LHU(inst.Rd, inst.Rs1, inst.Imm); err != nil {
			return err
		}
	case insts.OpLW:
		if err := e.loadStore.LW(inst.Rd, inst.Rs1, inst.Imm); err != nil {
			return err
		}
	case insts.OpSB:
		if err := e.loadStore.SB(inst.Rs1, inst.Rs2, inst.Imm); err != nil {
			return err
		}
	case insts.OpSH:
		if err := e.loadStore.SH(inst.Rs1, inst.Rs2, inst.Imm); err != nil {
			return err
		}
	case insts.OpSW:
		if err := e.loadStore.SW(inst.Rs1, inst.Rs2, inst.Imm); err != nil {
			return err
		}

	case insts.OpLUI:
		e.regFile.WriteReg(inst.Rd, uint32(inst.Imm))
	case insts.OpAUIPC:
		e.regFile.WriteReg(inst.Rd, e.regFile.PC+uint32(inst.Imm))

	case insts.OpJAL:
		e.branch.JAL(inst.Rd, inst.Imm)
		return nil
	case insts.OpJALR:
		e.branch.JALR(inst.Rd, inst.Rs1, inst.Imm)
		return nil
	case insts.OpBEQ:
		e.branch.Branch(BEQ, inst.Rs1, inst.Rs2, inst.Imm)
		return nil
	case insts.OpBNE:
		e.branch.Branch(BNE, inst.Rs1, inst.Rs2, inst.Imm)
		return nil
	case insts.OpBLT:
		e.branch.Branch(BLT, inst.Rs1, inst.Rs2, inst.Imm)
		return nil
	case insts.OpBGE:
		e.branch.Branch(BGE, inst.Rs1, inst.Rs2, inst.Imm)
		return nil
	case insts.OpBLTU:
		e.branch.Branch(BLTU, inst.Rs1, inst.Rs2, inst.Imm)
		return nil
	case insts.OpBGEU:
		e.branch.Branch(BGEU, inst.Rs1, inst.Rs2, inst.Imm)
		return nil

	default:
		return fmt.Errorf("%w: op %v has no executor handler", ErrUnsupportedInstruction, inst.Op)
	}

	e.regFile.PC += 4
	return nil
}
