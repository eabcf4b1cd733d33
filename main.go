// Command rvsim-info prints a short banner pointing at the full CLI.
//
// For the full CLI, use: go run ./cmd/rvsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvsim - RV32I/M functional and pipelined simulator")
	fmt.Println("")
	fmt.Println("Usage: rvsim [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -pipeline          Run in pipelined timing mode")
	fmt.Println("  -mem-size          Guest memory size in bytes")
	fmt.Println("  -max-instructions  Max instructions in simple mode")
	fmt.Println("  -v                 Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvsim' instead.")
	}
}
