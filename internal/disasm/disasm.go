// Package disasm defines the instruction representation produced by the
// in-process disassembler.
package disasm

// Inst is one decoded instruction.
type Inst struct {
	VA   uint64 // virtual address of instruction
	Raw  uint32 // raw little-endian encoding
	Op   string // mnemonic in lowercase
	Text string // formatted disassembly line
}

// Stream is a linear sequence of instructions.
type Stream []Inst
