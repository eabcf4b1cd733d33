package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/sarchlab/rvsim/insts"
)

// registerScoreboard tracks destination registers that have been decoded
// but not yet committed by write-back. It is the single source of truth
// HazardUnit consults, rather than peeking at individual latches: a
// register stays pending across every stage between decode and
// write-back, including the time an instruction spends being processed
// inside the execute and memory goroutines between one latch get and the
// next put, where it sits in no latch at all.
//
// Two in-flight instructions can legitimately target the same register
// (e.g. back-to-back writes to a scratch register before either commits),
// so pending is a refcount rather than a set.
// A register's reservation must be released exactly once, however the
// instruction that reserved it leaves the pipeline: either it commits in
// write-back (the common case) or it is squashed, in which case whichever
// of runDecode's put or runExecute's flush actually discards it is
// responsible for releasing it instead. Leaving a squashed reservation in
// place would make inFlight report that register as permanently pending,
// stalling decode forever the next time anything reads it.
type registerScoreboard struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending map[uint8]int
}

func newRegisterScoreboard() *registerScoreboard {
	s := &registerScoreboard{pending: make(map[uint8]int)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// reserve marks reg as having an in-flight write. Call once per decoded
// instruction that writes a register, before it is handed to execute.
func (s *registerScoreboard) reserve(reg uint8) {
	if reg == 0 {
		return
	}
	s.mu.Lock()
	s.pending[reg]++
	s.mu.Unlock()
}

// release undoes one reservation of reg and wakes anything stalled on it.
// Call once per instruction that reserved a register, whether it commits
// in write-back or is discarded by a squash.
func (s *registerScoreboard) release(reg uint8) {
	if reg == 0 {
		return
	}
	s.mu.Lock()
	if n := s.pending[reg]; n > 1 {
		s.pending[reg] = n - 1
	} else {
		delete(s.pending, reg)
	}
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *registerScoreboard) inFlightLocked(reg uint8) bool {
	_, ok := s.pending[reg]
	return ok
}

func (s *registerScoreboard) inFlight(reg uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlightLocked(reg)
}

// wait blocks until neither operand register has an in-flight write or
// abort fires, reporting whether it actually had to block. It is woken by
// release (on every commit or squash release) and by wake (on abort), and
// never polls in between.
func (s *registerScoreboard) wait(usesRs1, usesRs2 bool, rs1, rs2 uint8, abort *atomic.Bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stalled := false
	for (usesRs1 && s.inFlightLocked(rs1) || usesRs2 && s.inFlightLocked(rs2)) && !abort.Load() {
		stalled = true
		s.cond.Wait()
	}
	return stalled
}

// wake unblocks every decode goroutine waiting in wait, used when
// aborting the pipeline so it re-checks abort instead of waiting for a
// commit that will never come.
func (s *registerScoreboard) wake() {
	s.cond.Broadcast()
}

// HazardUnit detects the one hazard this pipeline resolves by stalling: an
// instruction about to enter execute reading a register that some older,
// still in-flight instruction will write. There is no operand forwarding
// (see the distilled spec's §4.4): a stall waits for the writing
// instruction to actually commit in write-back.
type HazardUnit struct {
	scoreboard *registerScoreboard
}

// NewHazardUnit creates a HazardUnit backed by the given scoreboard.
func NewHazardUnit(scoreboard *registerScoreboard) *HazardUnit {
	return &HazardUnit{scoreboard: scoreboard}
}

// Stall reports whether the instruction about to be decoded (reading rs1
// and, if used, rs2) must wait because a register it reads has an
// uncommitted write in flight somewhere in the pipeline. It is a
// non-blocking snapshot; runDecode uses the blocking Wait instead so a
// stalled instruction suspends on the scoreboard's condition variable
// rather than spinning.
func (h *HazardUnit) Stall(usesRs1, usesRs2 bool, rs1, rs2 uint8) bool {
	if usesRs1 && h.scoreboard.inFlight(rs1) {
		return true
	}
	if usesRs2 && h.scoreboard.inFlight(rs2) {
		return true
	}
	return false
}

// Wait blocks until the hazard Stall would report has cleared, or abort
// fires, and reports whether it actually had to block.
func (h *HazardUnit) Wait(usesRs1, usesRs2 bool, rs1, rs2 uint8, abort *atomic.Bool) bool {
	return h.scoreboard.wait(usesRs1, usesRs2, rs1, rs2, abort)
}

// writesRd reports whether op writes a destination register at all (branch
// and store instructions do not).
func writesRd(op insts.Op) bool {
	switch op {
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU,
		insts.OpSB, insts.OpSH, insts.OpSW:
		return false
	default:
		return true
	}
}

// usesRegisters reports which of rs1/rs2 a decoded instruction actually
// reads, since not every format populates both fields meaningfully.
func usesRegisters(inst *insts.Instruction) (usesRs1, usesRs2 bool) {
	switch inst.Format {
	case insts.FormatR, insts.FormatS, insts.FormatB:
		return true, true
	case insts.FormatI:
		return true, false
	default:
		return false, false
	}
}
