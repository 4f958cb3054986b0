// Package engine defines the contract for disassembly engines that
// enumerate candidate object-pool loads in a binary.
package engine

import (
	"fmt"

	"ppsearch/internal/operand"
)

// Engine produces the disassembly line sequence to scan for a given pair
// of operands. Implementations own an underlying resource (a child
// process or a mapped file) and must be closed on every exit path.
type Engine interface {
	// Find returns disassembly windows around every candidate address,
	// one line per instruction, windows separated by blank lines.
	Find(op operand.Operands) ([]string, error)
	Close() error
}

// ExternalToolError wraps a failure of the underlying engine: launch,
// binary open, or query execution. The engine's own diagnostic is kept
// verbatim in Err.
type ExternalToolError struct {
	Op  string
	Err error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("disassembly engine: %s: %v", e.Op, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// DependencyError reports a missing external tool. It replaces the old
// install-on-first-use behavior with an explicit preflight failure.
type DependencyError struct {
	Tool string
	Hint string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s is not installed: %s", e.Tool, e.Hint)
}
