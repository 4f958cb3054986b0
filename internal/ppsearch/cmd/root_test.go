package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"ppsearch/internal/operand"
	"ppsearch/internal/scan"
)

func TestPrintMatches(t *testing.T) {
	addLine := "            0x003076fc      70234091       add x16, x27, 8, lsl 12"
	ldrLine := "            0x00307700      107a44f9       ldr x16, [x16, 0x8f0]"

	tests := []struct {
		name    string
		matches []scan.Match
		want    []string
	}{
		{
			name:    "no matches",
			matches: nil,
			want:    []string{"No matches found.\n"},
		},
		{
			name:    "one match",
			matches: []scan.Match{{First: addLine, Second: ldrLine}},
			want: []string{
				"Found 1 direct matches:\n",
				addLine + "\n" + ldrLine + "\n\n",
			},
		},
		{
			name: "two matches",
			matches: []scan.Match{
				{First: addLine, Second: ldrLine},
				{First: addLine, Second: ldrLine},
			},
			want: []string{"Found 2 direct matches:\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printMatches(&buf, tt.matches, false)
			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestNoColorFlag(t *testing.T) {
	f := rootCmd.Flags().Lookup("no-color")
	if f == nil {
		t.Fatal("no-color flag not registered")
	}
	if f.DefValue != "false" {
		t.Errorf("no-color default = %q, want false", f.DefValue)
	}
}

func TestPrintMatchesPlainWhenColorOff(t *testing.T) {
	addLine := "            0x003076fc      70234091       add x16, x27, 8, lsl 12"
	ldrLine := "            0x00307700      107a44f9       ldr x16, [x16, 0x8f0]"

	var buf bytes.Buffer
	printMatches(&buf, []scan.Match{{First: addLine, Second: ldrLine}}, false)

	// With color off the lines must come through byte for byte, no
	// escape sequences.
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("output contains ANSI escapes with color disabled:\n%q", buf.String())
	}
	if !strings.Contains(buf.String(), addLine+"\n"+ldrLine+"\n") {
		t.Errorf("plain lines not preserved:\n%s", buf.String())
	}
}

func TestWriteReport(t *testing.T) {
	ops := operand.Operands{Shift: "8", Offset: "0x8f0"}
	matches := []scan.Match{{
		First:  "            0x003076fc      70234091       add x16, x27, 8, lsl 12",
		Second: "            0x00307700      107a44f9       ldr x16, [x16, 0x8f0]",
	}}

	var buf bytes.Buffer
	if err := writeReport(&buf, "/tmp/libapp.so", "0x88f0", "native", ops, matches); err != nil {
		t.Fatalf("writeReport() error = %v", err)
	}

	var report Report
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if report.Binary != "/tmp/libapp.so" || report.Value != "0x88f0" {
		t.Errorf("report header = %+v", report)
	}
	if report.Shift != "8" || report.Offset != "0x8f0" {
		t.Errorf("report operands = %q/%q", report.Shift, report.Offset)
	}
	if len(report.Matches) != 1 {
		t.Fatalf("report has %d matches, want 1", len(report.Matches))
	}
	if report.Matches[0].Add != "0x003076fc      70234091       add x16, x27, 8, lsl 12" {
		t.Errorf("match add line = %q", report.Matches[0].Add)
	}
}

func TestWriteReportEmptyMatches(t *testing.T) {
	var buf bytes.Buffer
	err := writeReport(&buf, "/tmp/libapp.so", "0x88f0", "r2", operand.Operands{Shift: "8", Offset: "0x8f0"}, nil)
	if err != nil {
		t.Fatalf("writeReport() error = %v", err)
	}
	// Zero matches must serialize as an empty array, not null.
	if !strings.Contains(buf.String(), `"matches": []`) {
		t.Errorf("empty match list not serialized as []:\n%s", buf.String())
	}
}

func TestOpenEngineUnknown(t *testing.T) {
	eng, err := openEngine("ghidra", "/tmp/libapp.so", 3)
	if err == nil {
		eng.Close()
		t.Fatal("expected error for unknown engine name")
	}
	if !strings.Contains(err.Error(), "ghidra") {
		t.Errorf("error %q does not name the bad engine", err)
	}
}
