// Package r2 drives a radare2 session over r2pipe to find object-pool
// load candidates. radare2 does the instruction-regex search and the
// disassembly; this package only builds the query and collects windows.
package r2

import (
	"fmt"
	"os/exec"
	"strings"

	r2pipe "github.com/radareorg/r2pipe-go"

	"ppsearch/internal/engine"
	"ppsearch/internal/operand"
)

// sessionConfig is applied right after the pipe opens. Equivalent to the
// legacy `-z -e log.quiet=true` argv flags: pool loads do not need the
// string scan, and analysis chatter would pollute the piped output.
var sessionConfig = []string{
	"e bin.strings=false",
	"e log.quiet=true",
}

// Session is an open radare2 pipe for one binary.
type Session struct {
	pipe   *r2pipe.Pipe
	binary string
	window int
}

// Preflight checks that a radare2 binary is on PATH. Called before
// spawning so a missing install surfaces as a setup error instead of a
// cryptic pipe failure.
func Preflight() error {
	for _, name := range []string{"radare2", "r2"} {
		if _, err := exec.LookPath(name); err == nil {
			return nil
		}
	}
	return &engine.DependencyError{
		Tool: "radare2",
		Hint: "install it from https://radare.org and make sure r2 is on PATH",
	}
}

// Open spawns radare2 on the binary and applies the session config.
// The caller must Close the session on every exit path.
func Open(binary string, window int) (*Session, error) {
	if err := Preflight(); err != nil {
		return nil, err
	}

	pipe, err := r2pipe.NewPipe(binary)
	if err != nil {
		return nil, &engine.ExternalToolError{Op: "open " + binary, Err: err}
	}

	s := &Session{pipe: pipe, binary: binary, window: window}
	for _, cfg := range sessionConfig {
		if _, err := pipe.Cmd(cfg); err != nil {
			s.Close()
			return nil, &engine.ExternalToolError{Op: "configure session", Err: err}
		}
	}
	return s, nil
}

// Close quits the radare2 child process.
func (s *Session) Close() error {
	if s.pipe == nil {
		return nil
	}
	err := s.pipe.Close()
	s.pipe = nil
	return err
}

// Find searches the binary for the add/ldr pool idiom and returns a short
// disassembly window at each hit, windows separated by blank lines.
// radare2 warnings (unapplied relocations and the like) go to stderr and
// never fail the query; they only affect completeness.
func (s *Session) Find(op operand.Operands) ([]string, error) {
	hits, err := s.pipe.Cmd(buildQuery(op))
	if err != nil {
		return nil, &engine.ExternalToolError{Op: "search " + s.binary, Err: err}
	}

	var lines []string
	for _, hit := range strings.Split(hits, "\n") {
		if strings.TrimSpace(hit) == "" {
			continue
		}
		// Hit lines are "0xADDR <len> <bytes> <disasm>"; only the address matters.
		addr := strings.Fields(hit)[0]
		window, err := s.pipe.Cmd(fmt.Sprintf("s %s;pd %d", addr, s.window))
		if err != nil {
			return nil, &engine.ExternalToolError{Op: "disassemble " + addr, Err: err}
		}
		lines = append(lines, strings.Split(window, "\n")...)
	}
	return lines, nil
}

// buildQuery renders the /ad/ instruction-regex search for the pool idiom.
// The two instructions need not be adjacent in the engine's match; the
// scanner enforces adjacency afterwards.
func buildQuery(op operand.Operands) string {
	return fmt.Sprintf("/ad/ add.*, x27, %s, lsl 12; .*, [.*, %s]", op.Shift, op.Offset)
}
