package loader

import "fmt"

// LinkerMapLoader reads a linker map file to recover segment base
// addresses and sizes (.text, .data, .bss, .stack) without a companion
// binary to supply instruction bytes. Like DisasmLoader, this satisfies
// the Loader contract so it can be selected uniformly, but is scaffolded
// only.
type LinkerMapLoader struct{}

// NewLinkerMapLoader creates a LinkerMapLoader.
func NewLinkerMapLoader() *LinkerMapLoader {
	return &LinkerMapLoader{}
}

// Load always fails with ErrNotImplemented; see the LinkerMapLoader doc comment.
func (l *LinkerMapLoader) Load(path string) (*Program, error) {
	return nil, fmt.Errorf("%w: linker-map loader (%s)", ErrNotImplemented, path)
}
