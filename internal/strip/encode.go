package strip

import (
	"fmt"
	"strings"

	"github.com/smazurov/lampnode/internal/color"
)

// Order is the byte order the strip controller expects per pixel.
type Order string

// Supported channel orders.
const (
	OrderRGB Order = "rgb"
	OrderGRB Order = "grb"
	OrderBRG Order = "brg"
)

// TypicalSMD5050 is the usual correction for 5050 package LEDs.
const TypicalSMD5050 color.Color = 0xFFB0F0

// ParseOrder accepts rgb, grb or brg in any case.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(s)); o {
	case OrderRGB, OrderGRB, OrderBRG:
		return o, nil
	default:
		return "", fmt.Errorf("unsupported channel order %q", s)
	}
}

// Encoder turns the pixel buffer into the byte frame written to the sink.
type Encoder struct {
	Order      Order
	Brightness uint8
	Correction color.Color
}

// NewEncoder returns a GRB encoder at full brightness with no correction.
func NewEncoder() Encoder {
	return Encoder{
		Order:      OrderGRB,
		Brightness: 255,
		Correction: 0xFFFFFF,
	}
}

// Encode builds a frame of 3 bytes per pixel.
func (e Encoder) Encode(pixels []color.Color) []byte {
	frame := make([]byte, 0, len(pixels)*3)
	for _, p := range pixels {
		r := scale8(scale8(p.R(), e.Correction.R()), e.Brightness)
		g := scale8(scale8(p.G(), e.Correction.G()), e.Brightness)
		b := scale8(scale8(p.B(), e.Correction.B()), e.Brightness)

		switch e.Order {
		case OrderRGB:
			frame = append(frame, r, g, b)
		case OrderBRG:
			frame = append(frame, b, r, g)
		default:
			frame = append(frame, g, r, b)
		}
	}
	return frame
}

// scale8 scales v by s/256, with 255 leaving v unchanged.
func scale8(v, s uint8) uint8 {
	return uint8((uint16(v) * (1 + uint16(s))) >> 8)
}
