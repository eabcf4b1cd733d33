// Package pipeline implements the optional five-stage pipelined execution
// mode: Fetch, Decode, Execute, Memory, and Write-Back run as independent
// goroutines, handing instructions to each other across one-slot
// rendezvous channels built from a mutex and a pair of condition
// variables.
package pipeline

import (
	"sync"
	"sync/atomic"
)

// latch is a one-slot rendezvous channel between two pipeline stages. A
// producer may write only when the latch is not valid; a consumer may read
// only when it is. Both sides block on the boundary's mutex and condition
// variables rather than polling.
//
// A producer that will never put again calls markDone, so its consumer can
// drain whatever is already latched and then exit cleanly instead of
// waiting forever for an item that is never coming (this is how fetch
// seeing the terminator propagates, stage by stage, down to write-back
// without cutting off in-flight older instructions).
type latch struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	valid    bool
	done     bool
	payload  any
	pc       uint32
	gen      uint64
}

func newLatch() *latch {
	l := &latch{}
	l.notFull = sync.NewCond(&l.mu)
	l.notEmpty = sync.NewCond(&l.mu)
	return l
}

// currentGen returns the latch's current squash generation. A producer
// calls this before doing any work for an item and passes the result back
// to put, so put can tell whether a squash landed on this latch while the
// item was being produced.
func (l *latch) currentGen() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// putOutcome reports what put actually did with an item.
type putOutcome int

const (
	// putWritten means the item was latched for the consumer.
	putWritten putOutcome = iota
	// putDropped means a squash landed on this latch while the item was
	// being produced, so it was discarded without ever being latched. The
	// caller is still running (not aborting) and must undo any bookkeeping
	// it did for this item before calling put, such as a hazard-scoreboard
	// reservation, since no downstream stage will ever see it.
	putDropped
	// putAborted means abort fired before the item could be latched.
	putAborted
)

// put blocks until the latch is empty or abort is set, then stores payload
// and wakes the consumer.
//
// gen must be the generation currentGen reported when the caller started
// producing payload. If flush has bumped the generation since then, the
// item is stale (it was squashed before it could be latched) and put
// drops it, reporting putDropped rather than writing it.
func (l *latch) put(pc uint32, payload any, gen uint64, abort *atomic.Bool) putOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.valid && !abort.Load() {
		l.notFull.Wait()
	}
	if abort.Load() {
		return putAborted
	}
	if gen != l.gen {
		return putDropped
	}
	l.pc = pc
	l.payload = payload
	l.valid = true
	l.notEmpty.Signal()
	return putWritten
}

// get blocks until the latch holds a value, its producer has called
// markDone with nothing left queued, or abort is set. ok is false in the
// latter two cases.
func (l *latch) get(abort *atomic.Bool) (pc uint32, payload any, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for !l.valid && !l.done && !abort.Load() {
		l.notEmpty.Wait()
	}
	if !l.valid {
		return 0, nil, false
	}
	pc, payload = l.pc, l.payload
	l.valid = false
	l.notFull.Signal()
	return pc, payload, true
}

// flush discards whatever the latch currently holds and bumps its
// generation, used to squash younger instructions on a taken branch or
// jump. Bumping the generation unconditionally, even when the latch is
// currently empty, is what lets put reject an item that was already being
// produced when the squash happened but had not reached the latch yet.
//
// flush returns the discarded payload, if any, so a caller that tracks
// side bookkeeping keyed on what was in flight (the hazard scoreboard) can
// undo it for exactly the item actually discarded, rather than guessing.
func (l *latch) flush() (payload any, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.valid {
		payload, ok = l.payload, true
		l.valid = false
		l.notFull.Signal()
	}
	l.gen++
	return payload, ok
}

// markDone records that this latch's producer stage will never put again,
// letting its consumer drain the last item (if any) and then stop.
func (l *latch) markDone() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done = true
	l.notEmpty.Broadcast()
}

// wake broadcasts on both conditions, used when aborting the pipeline so
// every blocked stage re-checks the abort flag.
func (l *latch) wake() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notFull.Broadcast()
	l.notEmpty.Broadcast()
}
