package emu

import (
	"fmt"
	"sync"
)

// DefaultMemorySize is the default backing size for a Memory, matching the
// repository's 1 MiB default address space.
const DefaultMemorySize = 1024 * 1024

// DefaultStackPointer is the fixed stack-pointer sentinel used when neither
// a loader nor a memory layout supplies one.
const DefaultStackPointer = 0x10000

// MemoryLayout describes the base and size of the segments a loader placed
// in memory. Any of the sizes may be zero if the loader did not determine
// that segment.
type MemoryLayout struct {
	TextStart, TextSize   uint32
	DataStart, DataSize   uint32
	BSSStart, BSSSize     uint32
	HeapStart, HeapSize   uint32
	StackStart, StackSize uint32
}

// Memory is a flat, byte-addressable address space. Multi-byte values are
// stored big-endian: the byte at the lowest address is the most significant.
// This is an intentional departure from RISC-V's native little-endian
// convention, preserved for fidelity to the system being modeled (see
// DESIGN.md).
//
// Memory is safe for concurrent use: the pipelined coordinator fetches
// instruction words from one goroutine while the memory stage accesses data
// from another, so every access is serialized through mu.
type Memory struct {
	mu   sync.RWMutex
	data []byte

	entryPoint uint32
	initialSP  uint32
	hasSP      bool
	layout     *MemoryLayout
}

// NewMemory creates a zero-initialized Memory of the given size in bytes.
func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

func (m *Memory) boundsCheck(addr uint32, width int) error {
	if uint64(addr)+uint64(width) > uint64(len(m.data)) {
		return fmt.Errorf("%w: address 0x%x width %d exceeds memory size 0x%x", ErrOutOfRange, addr, width, len(m.data))
	}
	return nil
}

// LoadByte reads an 8-bit value at addr.
func (m *Memory) LoadByte(addr uint32) (uint8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.boundsCheck(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// LoadHalf reads a big-endian 16-bit value at addr.
func (m *Memory) LoadHalf(addr uint32) (uint16, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.boundsCheck(addr, 2); err != nil {
		return 0, err
	}
	return uint16(m.data[addr])<<8 | uint16(m.data[addr+1]), nil
}

// LoadWord reads a big-endian 32-bit value at addr.
func (m *Memory) LoadWord(addr uint32) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.boundsCheck(addr, 4); err != nil {
		return 0, err
	}
	return uint32(m.data[addr])<<24 | uint32(m.data[addr+1])<<16 |
		uint32(m.data[addr+2])<<8 | uint32(m.data[addr+3]), nil
}

// StoreByte writes an 8-bit value at addr.
func (m *Memory) StoreByte(addr uint32, value uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(addr, 1); err != nil {
		return err
	}
	m.data[addr] = value
	return nil
}

// StoreHalf writes a big-endian 16-bit value at addr.
func (m *Memory) StoreHalf(addr uint32, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(addr, 2); err != nil {
		return err
	}
	m.data[addr] = byte(value >> 8)
	m.data[addr+1] = byte(value)
	return nil
}

// StoreWord writes a big-endian 32-bit value at addr.
func (m *Memory) StoreWord(addr uint32, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(addr, 4); err != nil {
		return err
	}
	m.data[addr] = byte(value >> 24)
	m.data[addr+1] = byte(value >> 16)
	m.data[addr+2] = byte(value >> 8)
	m.data[addr+3] = byte(value)
	return nil
}

// LoadImage copies data into memory starting at base, for use by loaders
// placing ELF segments. Bytes beyond len(data) up to memSize are left
// zeroed, giving BSS its zero-fill without a separate pass.
func (m *Memory) LoadImage(base uint32, data []byte, memSize uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(base, int(memSize)); err != nil {
		return err
	}
	copy(m.data[base:uint64(base)+uint64(memSize)], data)
	return nil
}

// Size returns the total addressable size of the memory in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// SetEntryPoint records the entry point reported by a loader.
func (m *Memory) SetEntryPoint(addr uint32) {
	m.entryPoint = addr
}

// EntryPoint returns the entry point reported by a loader, or 0 if none was
// set.
func (m *Memory) EntryPoint() uint32 {
	return m.entryPoint
}

// SetInitialStackPointer records the initial stack pointer reported by a
// loader.
func (m *Memory) SetInitialStackPointer(addr uint32) {
	m.initialSP = addr
	m.hasSP = true
}

// InitialStackPointer returns the initial stack pointer. If none was set
// explicitly, it falls back to the top of the stack segment from the memory
// layout, and failing that to DefaultStackPointer.
func (m *Memory) InitialStackPointer() uint32 {
	if m.hasSP {
		return m.initialSP
	}
	if m.layout != nil && m.layout.StackSize > 0 {
		return m.layout.StackStart + m.layout.StackSize
	}
	return DefaultStackPointer
}

// SetLayout records the memory layout reported by a loader.
func (m *Memory) SetLayout(layout *MemoryLayout) {
	m.layout = layout
}

// Layout returns the memory layout reported by a loader, or nil if none was
// set.
func (m *Memory) Layout() *MemoryLayout {
	return m.layout
}
