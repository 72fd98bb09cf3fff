package color

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Color
		wantErr error
	}{
		{"FF00AA", 0xff00aa, nil},
		{"ff00aa", 0xff00aa, nil},
		{"000000", 0, nil},
		{"ffffff", 0xffffff, nil},
		{"AbCdEf", 0xabcdef, nil},
		{"12345", 0, ErrLength},
		{"1234567", 0, ErrLength},
		{"", 0, ErrLength},
		{"12345Z", 0, ErrNotHex},
		{"0x1234", 0, ErrNotHex},
		{"+12345", 0, ErrNotHex},
		{" 12345", 0, ErrNotHex},
		{"-00001", 0, ErrNotHex},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %06x, want %06x", tt.input, uint32(got), uint32(tt.want))
			}
		})
	}
}

func TestParseRoundTripIsLowercase(t *testing.T) {
	inputs := []string{"FF00AA", "abcdef", "ABCDEF", "0a0B0c", "123456"}
	for _, in := range inputs {
		c, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := c.String(); got != strings.ToLower(in) {
			t.Errorf("Parse(%q).String() = %q, want %q", in, got, strings.ToLower(in))
		}
	}
}

func TestChannels(t *testing.T) {
	c := RGB(0x12, 0x34, 0x56)
	if c != 0x123456 {
		t.Fatalf("RGB() = %06x", uint32(c))
	}
	if c.R() != 0x12 || c.G() != 0x34 || c.B() != 0x56 {
		t.Errorf("channels = %02x %02x %02x", c.R(), c.G(), c.B())
	}
	if Black.String() != "000000" {
		t.Errorf("Black.String() = %q", Black.String())
	}
}
