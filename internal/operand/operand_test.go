package operand

import (
	"errors"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		hex    string
		shift  string
		offset string
	}{
		{
			name:   "single digit shift",
			hex:    "0x88f0",
			shift:  "8",
			offset: "0x8f0",
		},
		{
			name:   "hex letter shift keeps prefix",
			hex:    "0xb8f0",
			shift:  "0xb",
			offset: "0x8f0",
		},
		{
			name:   "two digit shift keeps prefix",
			hex:    "0x10123",
			shift:  "0x10",
			offset: "0x123",
		},
		{
			name:   "offset with two leading zeros collapses to one digit",
			hex:    "0x8003",
			shift:  "8",
			offset: "3",
		},
		{
			name:   "offset letter with two leading zeros",
			hex:    "0x800f",
			shift:  "8",
			offset: "f",
		},
		{
			name:   "offset with one leading zero drops it",
			hex:    "0x8073",
			shift:  "8",
			offset: "0x73",
		},
		{
			name:   "three digit value leaves bare prefix as shift",
			hex:    "0x123",
			shift:  "0x",
			offset: "0x123",
		},
		{
			name:   "zero shift keeps prefixed form",
			hex:    "0x08f0",
			shift:  "0x0",
			offset: "0x8f0",
		},
		{
			name:   "double zero shift collapses to bare zero",
			hex:    "0x00123",
			shift:  "0",
			offset: "0x123",
		},
		{
			name:   "value without prefix",
			hex:    "88f0",
			shift:  "8",
			offset: "0x8f0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.hex)
			if err != nil {
				t.Fatalf("Split(%q) error = %v", tt.hex, err)
			}
			if got.Shift != tt.shift {
				t.Errorf("Split(%q).Shift = %q, want %q", tt.hex, got.Shift, tt.shift)
			}
			if got.Offset != tt.offset {
				t.Errorf("Split(%q).Offset = %q, want %q", tt.hex, got.Offset, tt.offset)
			}
		})
	}
}

func TestSplitInvalid(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{name: "empty", hex: ""},
		{name: "prefix only", hex: "0x"},
		{name: "two digits", hex: "0x12"},
		{name: "two digits no prefix", hex: "12"},
		{name: "non-hex in tail", hex: "0x88fg"},
		{name: "uppercase tail digit", hex: "0x88F0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.hex)
			if err == nil {
				t.Fatalf("Split(%q) expected error, got none", tt.hex)
			}
			var invalid *InvalidInputError
			if !errors.As(err, &invalid) {
				t.Errorf("Split(%q) error = %T, want *InvalidInputError", tt.hex, err)
			}
		})
	}
}

func TestCollapseShift(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"0x8", "8"},
		{"0x08", "8"},
		{"0xb", "0xb"},
		{"0x10", "0x10"},
		{"0x0", "0x0"},
		{"0x", "0x"},
		{"8", "8"},
	}

	for _, tt := range tests {
		if got := collapseShift(tt.raw); got != tt.want {
			t.Errorf("collapseShift(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
