package scan

import (
	"testing"

	"ppsearch/internal/operand"
)

var ops = operand.Operands{Shift: "8", Offset: "0x8f0"}

const (
	addLine = "            0x003076fc      70234091       add x16, x27, 8, lsl 12"
	ldrLine = "            0x00307700      107a44f9       ldr x16, [x16, 0x8f0]       ; 0xea"
)

func TestPatterns(t *testing.T) {
	first, second := Patterns(ops)

	if !first.MatchString(addLine) {
		t.Errorf("first pattern did not match %q", addLine)
	}
	if !second.MatchString(ldrLine) {
		t.Errorf("second pattern did not match %q", ldrLine)
	}

	// The add pattern must not match a different shift immediate.
	if first.MatchString("            0x00307700      00000000       add x16, x27, 9, lsl 12") {
		t.Error("first pattern matched wrong shift immediate")
	}
	// The ldr pattern must not match a different displacement.
	if second.MatchString("            0x00307700      00000000       ldr x16, [x16, 0x8f4]") {
		t.Error("second pattern matched wrong displacement")
	}
	// Loads through a non-x register are not pool loads.
	if second.MatchString("            0x00307700      00000000       ldr w16, [x16, 0x8f0]") {
		t.Error("second pattern matched a w-register load")
	}
}

func TestAdjacentPairs(t *testing.T) {
	first, second := Patterns(ops)

	tests := []struct {
		name  string
		lines []string
		want  int
	}{
		{
			name:  "single pair",
			lines: []string{addLine, ldrLine},
			want:  1,
		},
		{
			name:  "pair inside window noise",
			lines: []string{"            0x003076f8      00000000       mov x0, x1", addLine, ldrLine},
			want:  1,
		},
		{
			name:  "two pairs",
			lines: []string{addLine, ldrLine, "", addLine, ldrLine},
			want:  2,
		},
		{
			name:  "separated by blank line",
			lines: []string{addLine, "", ldrLine},
			want:  0,
		},
		{
			name:  "reversed order",
			lines: []string{ldrLine, addLine},
			want:  0,
		},
		{
			name:  "ldr without preceding add",
			lines: []string{"mov x0, x1", ldrLine, "ret"},
			want:  0,
		},
		{
			name:  "add without following ldr",
			lines: []string{addLine, "ret"},
			want:  0,
		},
		{
			name:  "empty sequence",
			lines: nil,
			want:  0,
		},
		{
			name:  "single line",
			lines: []string{addLine},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjacentPairs(tt.lines, first, second)
			if len(got) != tt.want {
				t.Fatalf("AdjacentPairs() returned %d matches, want %d", len(got), tt.want)
			}
			for _, m := range got {
				if !first.MatchString(m.First) || !second.MatchString(m.Second) {
					t.Errorf("match pair (%q, %q) does not satisfy the patterns", m.First, m.Second)
				}
			}
		})
	}
}

func TestAdjacentPairsOrder(t *testing.T) {
	first, second := Patterns(ops)

	a1 := addLine + " ;first"
	a2 := addLine + " ;second"
	lines := []string{a1, ldrLine, "", a2, ldrLine}

	got := AdjacentPairs(lines, first, second)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].First != a1 || got[1].First != a2 {
		t.Errorf("matches out of input order: %q before %q", got[0].First, got[1].First)
	}
}
