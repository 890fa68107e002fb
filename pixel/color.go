package pixel

import "image/color"

// MonoModel converts any color to [Mono] by luminance.
var MonoModel color.Model = color.ModelFunc(monoModel)

var (
	// Off is bare paper.
	Off = Mono{false}

	// On is ink of whatever color the plane carries.
	On = Mono{true}
)

// Mono represents a 1-bit ink color: a pixel either carries ink or shows paper.
type Mono struct {
	On bool
}

// RGBA renders ink as black and paper as white.
func (c Mono) RGBA() (r, g, b, a uint32) {
	if c.On {
		return 0, 0, 0, 0xffff
	}
	return 0xffff, 0xffff, 0xffff, 0xffff
}

func monoModel(c color.Color) color.Color {
	if _, ok := c.(Mono); ok {
		return c
	}
	r, g, b, a := c.RGBA()
	if a == 0 {
		return Off
	}

	// These coefficients (the fractions 0.299, 0.587 and 0.114) are the same
	// as those given by the JFIF specification and used by func RGBToYCbCr in
	// ycbcr.go.
	//
	// Note that 19595 + 38470 + 7471 equals 65536.
	y := (19595*r + 38470*g + 7471*b + 1<<15) >> 16

	// Anything darker than mid gray is ink.
	return Mono{On: y < 0x8000}
}
