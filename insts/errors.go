package insts

import "errors"

// ErrUnsupportedInstruction is wrapped by Decode when a word is zero,
// carries an unrecognized opcode, or pairs a recognized opcode with an
// unrecognized funct3/funct7 combination.
var ErrUnsupportedInstruction = errors.New("unsupported instruction")
