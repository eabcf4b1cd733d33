package emu

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is wrapped by a Memory access outside [0, size).
	ErrOutOfRange = errors.New("memory access out of range")

	// ErrUnsupportedInstruction is wrapped when the executor receives a
	// decoded instruction it has no handler for.
	ErrUnsupportedInstruction = errors.New("unsupported instruction")

	// ErrDivideByZero is named for callers that want to detect a zero
	// divisor; the executor itself never returns it fatally (see DESIGN.md).
	ErrDivideByZero = errors.New("divide by zero")
)

// FatalError reports an execution failure together with the architectural
// state at the time of the failure, so a caller can render a single
// consistent diagnostic regardless of whether the failure came from the
// simple interpreter or the pipeline.
type FatalError struct {
	PC   uint32
	Word uint32
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error at pc=0x%08X word=0x%08X: %v", e.PC, e.Word, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
