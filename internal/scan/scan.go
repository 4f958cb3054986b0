// Package scan matches the two-instruction object-pool load idiom in
// disassembly text.
package scan

import (
	"regexp"

	"ppsearch/internal/operand"
)

// Match is a pair of adjacent disassembly lines forming one pool load.
type Match struct {
	First  string // add xN, x27, <shift>, lsl 12
	Second string // ldr xN, [xN, <offset>]
}

// Patterns builds the two line patterns parametrized by the operands.
// The first matches the pool page computation, the second the load from
// the page.
func Patterns(op operand.Operands) (first, second *regexp.Regexp) {
	first = regexp.MustCompile(`add\s+(x\d+),\s+x27,\s+` + regexp.QuoteMeta(op.Shift) + `,\s+lsl\s+12`)
	second = regexp.MustCompile(`ldr\s+(x\d+),\s+\[(x\d+),\s+` + regexp.QuoteMeta(op.Offset) + `]`)
	return first, second
}

// AdjacentPairs scans lines in order and records every index i where line i
// matches first and line i+1 matches second. Each adjacent pair is tested
// exactly once; results keep input order. Fewer than two lines yields nil.
func AdjacentPairs(lines []string, first, second *regexp.Regexp) []Match {
	var matches []Match
	for i := 0; i+1 < len(lines); i++ {
		if first.MatchString(lines[i]) && second.MatchString(lines[i+1]) {
			matches = append(matches, Match{First: lines[i], Second: lines[i+1]})
		}
	}
	return matches
}
