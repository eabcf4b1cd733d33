package loader

import "fmt"

// DisasmLoader reads a disassembly-listing text file: an address-labeled
// function header line followed by one hex instruction word per subsequent
// line. This mirrors the shape of the original system's disassembly
// ingestion path, but is not wired up: this repository's instruction
// stream comes from ELF images, and no disassembly-listing fixture exists
// to validate a real parser against. Load reports ErrNotImplemented rather
// than guessing at a format nothing exercises.
type DisasmLoader struct{}

// NewDisasmLoader creates a DisasmLoader.
func NewDisasmLoader() *DisasmLoader {
	return &DisasmLoader{}
}

// Load always fails with ErrNotImplemented; see the DisasmLoader doc comment.
func (l *DisasmLoader) Load(path string) (*Program, error) {
	return nil, fmt.Errorf("%w: disassembly-listing loader (%s)", ErrNotImplemented, path)
}
