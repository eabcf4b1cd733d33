// Package emu provides functional RV32I emulation.
package emu

import "sync"

// RegNames holds the canonical ABI name for each of the 32 general-purpose
// registers, in index order.
var RegNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegFile represents the RV32I register file.
// It contains 32 general-purpose registers (x0-x31) and the program
// counter. x0 is hard-wired to zero: reads always return 0 and writes are
// ignored.
//
// The simple interpreter touches RegFile from a single goroutine, so mu is
// never contended there. The pipelined executor (package timing/pipeline)
// runs decode and write-back as separate goroutines that both call into
// RegFile concurrently, so reads and writes are locked to give ReadReg a
// well-defined happens-before relationship with the WriteReg that produced
// the value it returns.
type RegFile struct {
	mu sync.Mutex

	// X holds general-purpose registers x0-x31. X[0] is always 0; see
	// ReadReg/WriteReg.
	X [32]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 always reads as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.X[reg] = value
}
