// Package operand splits a hex immediate into the two operands of the
// Dart object-pool load idiom: the page shift added to x27 and the load
// displacement into the pool page.
//
// The splitting rules are inherited from the original radare2 script and
// are character-level, not arithmetic. They are kept bit-for-bit so that
// derived search patterns keep matching the same binaries.
package operand

import (
	"fmt"
	"strings"
)

// Operands are the two immediates derived from one hex value.
type Operands struct {
	Shift  string // immediate added to x27 before lsl 12
	Offset string // displacement of the ldr from the pool page
}

// InvalidInputError reports a hex value the splitter cannot work with.
type InvalidInputError struct {
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid hex value %q: %s", e.Value, e.Reason)
}

// Split decomposes a hex value of the form 0x followed by at least three
// hex digits. The last three digits encode the offset operand, everything
// before them the shift operand.
func Split(hex string) (Operands, error) {
	body := strings.TrimPrefix(hex, "0x")
	if len(body) < 3 {
		return Operands{}, &InvalidInputError{Value: hex, Reason: "need at least 3 hex digits"}
	}

	tail := hex[len(hex)-3:]
	for i := 0; i < 3; i++ {
		if !isHexDigit(tail[i]) {
			return Operands{}, &InvalidInputError{
				Value:  hex,
				Reason: fmt.Sprintf("non-hex digit %q in last three characters", tail[i]),
			}
		}
	}

	return Operands{
		Shift:  collapseShift(hex[:len(hex)-3]),
		Offset: encodeOffset(tail),
	}, nil
}

// collapseShift reduces the raw shift operand to a bare digit when it is a
// small decimal value. radare2 prints immediates below ten without a 0x
// prefix, so "0x8" must become "8" for the pattern to match, while "0xb"
// or "0x10" stay as they are.
func collapseShift(raw string) string {
	stripped := trimHexPrefix(raw)
	if strings.HasPrefix(stripped, "0") {
		stripped = stripped[1:]
	}
	if len(stripped) == 1 && !isHexLetter(stripped[0]) {
		return stripped
	}
	return raw
}

// trimHexPrefix removes one leading "0x". This is a literal two-character
// strip, not a validated prefix parse; the legacy behavior for inputs
// without a prefix is preserved on purpose.
func trimHexPrefix(s string) string {
	return strings.TrimPrefix(s, "0x")
}

// encodeOffset turns the last three hex digits into the displacement
// operand the way radare2 renders it: leading zero digits dropped, 0x
// prefix only when more than one digit survives.
func encodeOffset(tail string) string {
	switch {
	case tail[:2] == "00":
		return tail[2:]
	case tail[0] == '0':
		return "0x" + tail[1:]
	default:
		return "0x" + tail
	}
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || isHexLetter(c)
}

func isHexLetter(c byte) bool {
	return c >= 'a' && c <= 'f'
}
