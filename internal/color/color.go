// Package color holds the 24-bit RGB value commanded to the strip.
package color

import (
	"errors"
	"fmt"
	"strconv"
)

// HexLength is the number of hex digits in the canonical representation.
const HexLength = 6

var (
	// ErrLength is returned when the input is not exactly HexLength characters.
	ErrLength = errors.New("color must be exactly 6 characters")
	// ErrNotHex is returned when the input contains a non-hex character.
	ErrNotHex = errors.New("color must contain only hexadecimal digits")
)

// Color is a 24-bit RGB value, 0xRRGGBB.
type Color uint32

// Black is the boot-time color.
const Black Color = 0

// Parse validates and parses a 6 hex digit string. Case-insensitive, no prefix.
func Parse(s string) (Color, error) {
	if len(s) != HexLength {
		return Black, fmt.Errorf("%w: got %d", ErrLength, len(s))
	}
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return Black, fmt.Errorf("%w: %q at position %d", ErrNotHex, s[i], i)
		}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Black, fmt.Errorf("%w: %w", ErrNotHex, err)
	}
	return Color(v), nil
}

// RGB builds a Color from its channels.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// String returns the canonical lowercase 6-digit form.
func (c Color) String() string {
	return fmt.Sprintf("%06x", uint32(c)&0xFFFFFF)
}

// R returns the red channel.
func (c Color) R() uint8 { return uint8(c >> 16) }

// G returns the green channel.
func (c Color) G() uint8 { return uint8(c >> 8) }

// B returns the blue channel.
func (c Color) B() uint8 { return uint8(c) }

func isHex(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b >= 'a' && b <= 'f':
		return true
	case b >= 'A' && b <= 'F':
		return true
	}
	return false
}
