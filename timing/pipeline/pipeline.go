package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/sarchlab/rvsim/emu"
)

// terminator is the 32-bit word that halts execution, matching the simple
// interpreter in package emu.
const terminator = 0x00008067

// Statistics reports pipeline execution counters.
type Statistics struct {
	Cycles       uint64
	Instructions uint64
	Stalls       uint64
	Flushes      uint64
}

// CPI returns cycles per instruction, or 0 if no instructions retired.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Pipeline coordinates the five pipeline stages as independent goroutines
// connected by one-slot rendezvous latches. There is no operand
// forwarding: a read-after-write hazard stalls decode until the writing
// instruction actually commits in write-back (see HazardUnit and
// registerScoreboard). Taken branches and jumps squash the fetch and
// decode latches, synchronously from the execute goroutine, and redirect
// fetch.
type Pipeline struct {
	regFile *emu.RegFile
	memory  *emu.Memory

	fetchStage   *FetchStage
	decodeStage  *DecodeStage
	executeStage *ExecuteStage
	memoryStage  *MemoryStage
	writeBack    *WriteBackStage
	hazard       *HazardUnit
	scoreboard   *registerScoreboard

	fetchDecode  *latch
	decodeExec   *latch
	execMem      *latch
	memWriteback *latch

	halted  atomic.Bool
	fatalMu sync.Mutex
	fatal   error

	statsMu sync.Mutex
	stats   Statistics

	wg sync.WaitGroup
}

// NewPipeline creates a Pipeline over the given register file and memory.
// pc is taken from regFile.PC at the moment Run is called.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory) *Pipeline {
	p := &Pipeline{
		regFile: regFile,
		memory:  memory,

		fetchDecode:  newLatch(),
		decodeExec:   newLatch(),
		execMem:      newLatch(),
		memWriteback: newLatch(),
	}
	p.fetchStage = NewFetchStage(memory)
	p.decodeStage = NewDecodeStage(regFile)
	p.executeStage = NewExecuteStage()
	p.memoryStage = NewMemoryStage(memory)
	p.writeBack = NewWriteBackStage(regFile)
	p.scoreboard = newRegisterScoreboard()
	p.hazard = NewHazardUnit(p.scoreboard)
	return p
}

// Stats returns a snapshot of the pipeline's execution statistics.
func (p *Pipeline) Stats() Statistics {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *Pipeline) setFatal(err error) {
	p.fatalMu.Lock()
	if p.fatal == nil {
		p.fatal = err
	}
	p.fatalMu.Unlock()
	p.halted.Store(true)
	p.wakeAll()
}

func (p *Pipeline) wakeAll() {
	p.fetchDecode.wake()
	p.decodeExec.wake()
	p.execMem.wake()
	p.memWriteback.wake()
	p.scoreboard.wake()
}

// Run drives the pipeline from regFile.PC until the terminator is fetched
// or a fatal error occurs, joining all five stage goroutines before
// returning.
func (p *Pipeline) Run() error {
	redirect := &redirectSignal{}

	p.wg.Add(5)
	go p.runFetch(redirect)
	go p.runDecode()
	go p.runExecute(redirect)
	go p.runMemory()
	go p.runWriteBack()
	p.wg.Wait()

	p.fatalMu.Lock()
	defer p.fatalMu.Unlock()
	return p.fatal
}

// redirectSignal carries a pending fetch-target correction from execute
// back to fetch, guarded by its own mutex since it is written by one
// goroutine and read by another outside the normal latch rendezvous.
type redirectSignal struct {
	mu      sync.Mutex
	target  uint32
	pending bool
}

func (r *redirectSignal) set(target uint32) {
	r.mu.Lock()
	r.target = target
	r.pending = true
	r.mu.Unlock()
}

func (r *redirectSignal) take() (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending {
		return 0, false
	}
	r.pending = false
	return r.target, true
}

// runFetch feeds the pipeline until it fetches the terminator, at which
// point it marks fetchDecode done instead of aborting outright: older
// instructions already in flight downstream still have to retire.
func (p *Pipeline) runFetch(redirect *redirectSignal) {
	defer p.wg.Done()
	defer p.fetchDecode.markDone()
	pc := p.regFile.PC
	for {
		if p.halted.Load() {
			return
		}
		if target, ok := redirect.take(); ok {
			pc = target
		}

		gen := p.fetchDecode.currentGen()
		word, err := p.fetchStage.Fetch(pc)
		if err != nil {
			p.setFatal(&emu.FatalError{PC: pc, Err: err})
			return
		}
		if word == terminator {
			return
		}

		if p.fetchDecode.put(pc, &fetchedWord{word: word}, gen, &p.halted) == putAborted {
			return
		}
		pc += 4
	}
}

func (p *Pipeline) runDecode() {
	defer p.wg.Done()
	defer p.decodeExec.markDone()
	for {
		pc, payload, ok := p.fetchDecode.get(&p.halted)
		if !ok {
			return
		}
		fw := payload.(*fetchedWord)

		gen := p.decodeExec.currentGen()

		decoded, err := p.decodeStage.Decode(fw.word)
		if err != nil {
			p.setFatal(&emu.FatalError{PC: pc, Word: fw.word, Err: err})
			return
		}

		usesRs1, usesRs2 := usesRegisters(decoded.inst)
		if p.hazard.Wait(usesRs1, usesRs2, decoded.inst.Rs1, decoded.inst.Rs2, &p.halted) {
			p.bumpStalls()
		}
		if p.halted.Load() {
			return
		}

		// Operands are read only after the stall clears, never while the
		// producing instruction might still be in flight, so a dependent
		// instruction always sees the committed value rather than whatever
		// was sampled mid-stall.
		decoded.rs1V = p.decodeStage.regFile.ReadReg(decoded.inst.Rs1)
		decoded.rs2V = p.decodeStage.regFile.ReadReg(decoded.inst.Rs2)

		writes := writesRd(decoded.inst.Op)
		if writes {
			p.scoreboard.reserve(decoded.inst.Rd)
		}

		switch p.decodeExec.put(pc, decoded, gen, &p.halted) {
		case putAborted:
			if writes {
				p.scoreboard.release(decoded.inst.Rd)
			}
			return
		case putDropped:
			// Squashed before it could be latched: nothing downstream will
			// ever commit this instruction, so its reservation must be
			// released here instead.
			if writes {
				p.scoreboard.release(decoded.inst.Rd)
			}
		}
	}
}

func (p *Pipeline) runExecute(redirect *redirectSignal) {
	defer p.wg.Done()
	defer p.execMem.markDone()
	for {
		pc, payload, ok := p.decodeExec.get(&p.halted)
		if !ok {
			return
		}
		decoded := payload.(*decodedInst)

		gen := p.execMem.currentGen()

		outcome := p.executeStage.Execute(pc, decoded)
		if outcome.redirect {
			// Squash synchronously, before looping back to consume the
			// next decodeExec entry: if the squash were left to fetch's
			// asynchronous redirect.take(), a wrong-path instruction that
			// already landed in decodeExec (or is about to) could be
			// dequeued and executed first. Flushing here, and bumping each
			// latch's generation, makes any such instruction either get
			// wiped outright or get silently dropped by put once its
			// producer catches up.
			p.fetchDecode.flush()
			if discarded, dropped := p.decodeExec.flush(); dropped {
				// The squashed instruction already reserved its
				// destination register (runDecode does that before put)
				// but will never reach write-back now, so release it here
				// or inFlight would report that register as pending
				// forever.
				if squashed, ok := discarded.(*decodedInst); ok && writesRd(squashed.inst.Op) {
					p.scoreboard.release(squashed.inst.Rd)
				}
			}
			p.bumpFlushes()
			redirect.set(outcome.redirectTo)
		}

		if p.execMem.put(pc, outcome.result, gen, &p.halted) == putAborted {
			return
		}
	}
}

func (p *Pipeline) runMemory() {
	defer p.wg.Done()
	defer p.memWriteback.markDone()
	for {
		pc, payload, ok := p.execMem.get(&p.halted)
		if !ok {
			return
		}
		e := payload.(*executedInst)

		gen := p.memWriteback.currentGen()

		item, err := p.memoryStage.Access(e)
		if err != nil {
			p.setFatal(&emu.FatalError{PC: pc, Err: err})
			return
		}

		if p.memWriteback.put(pc, item, gen, &p.halted) == putAborted {
			return
		}
	}
}

func (p *Pipeline) runWriteBack() {
	defer p.wg.Done()
	for {
		_, payload, ok := p.memWriteback.get(&p.halted)
		if !ok {
			return
		}
		item := payload.(writebackItem)
		p.writeBack.Commit(item)
		if item.hasWrite {
			p.scoreboard.release(item.rd)
		}
		p.bumpRetired()
	}
}

func (p *Pipeline) bumpStalls() {
	p.statsMu.Lock()
	p.stats.Stalls++
	p.statsMu.Unlock()
}

func (p *Pipeline) bumpFlushes() {
	p.statsMu.Lock()
	p.stats.Flushes++
	p.statsMu.Unlock()
}

func (p *Pipeline) bumpRetired() {
	p.statsMu.Lock()
	p.stats.Instructions++
	p.stats.Cycles++
	p.statsMu.Unlock()
}
