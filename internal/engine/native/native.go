// Package native is the in-process disassembly engine. It walks the
// executable region with golang.org/x/arch and emits radare2-style lines
// so the same patterns apply whichever engine produced the listing.
// It exists so the tool still works on hosts without radare2.
package native

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"ppsearch/internal/disasm"
	"ppsearch/internal/elfx"
	"ppsearch/internal/engine"
	"ppsearch/internal/operand"
)

// Engine scans one opened ELF image.
type Engine struct {
	img    *elfx.Image
	window int
}

// Open maps the binary. The caller must Close the engine on every exit path.
func Open(binary string, window int) (*Engine, error) {
	img, err := elfx.Open(binary)
	if err != nil {
		return nil, &engine.ExternalToolError{Op: "open " + binary, Err: err}
	}
	return &Engine{img: img, window: window}, nil
}

func (e *Engine) Close() error {
	if e.img == nil {
		return nil
	}
	err := e.img.Close()
	e.img = nil
	return err
}

// Find decodes the executable region, locates every pool page computation
// whose immediate renders as the shift operand, and returns a window of
// instructions starting at each hit, windows separated by blank lines.
func (e *Engine) Find(op operand.Operands) ([]string, error) {
	text, ok := e.img.TextBytes()
	if !ok {
		return nil, &engine.ExternalToolError{Op: "read " + e.img.Path, Err: errors.New("executable region not mapped")}
	}

	stream, hits := decodeText(e.img.Text.VA, text, op.Shift)

	var lines []string
	for _, h := range hits {
		end := h + e.window
		if end > len(stream) {
			end = len(stream)
		}
		for _, in := range stream[h:end] {
			lines = append(lines, in.Text)
		}
		lines = append(lines, "")
	}
	return lines, nil
}

// decodeText decodes the whole region into a stream and records the index
// of every `add xN, x27, <shift>, lsl 12`.
func decodeText(base uint64, data []byte, shift string) (disasm.Stream, []int) {
	n := len(data) / 4
	stream := make(disasm.Stream, 0, n)
	var hits []int

	for i := 0; i < n; i++ {
		off := i * 4
		raw := binary.LittleEndian.Uint32(data[off : off+4])
		va := base + uint64(off)

		inst, err := arm64asm.Decode(data[off : off+4])
		if err != nil {
			stream = append(stream, disasm.Inst{
				VA:   va,
				Raw:  raw,
				Op:   ".word",
				Text: formatLine(va, raw, fmt.Sprintf(".word 0x%08x", raw)),
			})
			continue
		}

		text, poolAdd := renderInst(inst, shift)
		stream = append(stream, disasm.Inst{
			VA:   va,
			Raw:  raw,
			Op:   strings.ToLower(inst.Op.String()),
			Text: formatLine(va, raw, text),
		})
		if poolAdd {
			hits = append(hits, i)
		}
	}
	return stream, hits
}

// renderInst returns the instruction text in radare2's operand style and
// whether it is a pool page computation matching the shift operand.
// Instructions outside the pool idiom keep GNU syntax; the patterns never
// need to match those.
func renderInst(inst arm64asm.Inst, shift string) (text string, poolAdd bool) {
	switch inst.Op {
	case arm64asm.ADD:
		if len(inst.Args) < 3 || !isReg(inst.Args[1], "x27") {
			break
		}
		is, ok := inst.Args[2].(arm64asm.ImmShift)
		if !ok {
			break
		}
		imm, lsl, ok := parseImmShift(is)
		if !ok || lsl != 12 {
			break
		}
		rendered := formatImm(imm)
		return fmt.Sprintf("add %s, x27, %s, lsl 12", regName(inst.Args[0]), rendered),
			rendered == shift
	case arm64asm.LDR:
		if len(inst.Args) < 2 {
			break
		}
		mem, ok := inst.Args[1].(arm64asm.MemImmediate)
		if !ok {
			break
		}
		off, ok := parseMemOffset(mem)
		if !ok {
			break
		}
		rt := regName(inst.Args[0])
		bas := strings.ToLower(mem.Base.String())
		if off == 0 {
			return fmt.Sprintf("ldr %s, [%s]", rt, bas), false
		}
		return fmt.Sprintf("ldr %s, [%s, %s]", rt, bas, formatImm(off)), false
	}
	return strings.ToLower(arm64asm.GNUSyntax(inst)), false
}

func isReg(arg arm64asm.Arg, name string) bool {
	switch arg.(type) {
	case arm64asm.Reg, arm64asm.RegSP:
		return strings.ToLower(arg.String()) == name
	}
	return false
}

func regName(arg arm64asm.Arg) string {
	return strings.ToLower(arg.String())
}

// parseImmShift extracts the immediate and shift amount from an ImmShift
// argument via its string form ("#0x8, lsl #12" or "#0x8"); the package
// does not export the underlying fields.
func parseImmShift(is arm64asm.ImmShift) (imm, lsl uint64, ok bool) {
	s := strings.ToLower(is.String())
	immPart, shiftPart, shifted := strings.Cut(s, ",")
	imm, err := parseHash(immPart)
	if err != nil {
		return 0, 0, false
	}
	if shifted {
		shiftPart = strings.TrimSpace(shiftPart)
		if !strings.HasPrefix(shiftPart, "lsl") {
			return 0, 0, false
		}
		lsl, err = parseHash(strings.TrimPrefix(shiftPart, "lsl"))
		if err != nil {
			return 0, 0, false
		}
	}
	return imm, lsl, true
}

// parseMemOffset extracts the displacement from a plain [base, #imm]
// operand. Pre- and post-indexed forms report false so they are never
// rendered as pool loads.
func parseMemOffset(mem arm64asm.MemImmediate) (uint64, bool) {
	s := strings.ToLower(mem.String())
	if !strings.HasSuffix(s, "]") {
		return 0, false
	}
	hash := strings.Index(s, "#")
	if hash < 0 {
		// No displacement at all, e.g. "[x16]".
		return 0, true
	}
	end := strings.Index(s[hash:], "]")
	if end < 0 {
		return 0, false
	}
	v, err := parseHash(s[hash : hash+end])
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseHash(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if strings.HasPrefix(s, "0x") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// formatImm renders an immediate the way radare2 prints it: bare decimal
// below ten, 0x-prefixed hex otherwise.
func formatImm(v uint64) string {
	if v < 10 {
		return strconv.FormatUint(v, 10)
	}
	return fmt.Sprintf("0x%x", v)
}

// formatLine lays the line out like radare2's pd output:
// address, raw bytes in memory order, then the instruction text.
func formatLine(va uint64, raw uint32, text string) string {
	return fmt.Sprintf("            0x%08x      %02x%02x%02x%02x       %s",
		va, byte(raw), byte(raw>>8), byte(raw>>16), byte(raw>>24), text)
}
