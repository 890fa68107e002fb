package epd

import (
	"image"

	"github.com/BeatGlow/verseclock/pixel"
)

// logicalBounds returns the drawing bounds of a native width x height panel
// after applying rotation.
func logicalBounds(width, height int, rotation Rotation) image.Rectangle {
	switch rotation % 4 {
	case Rotate90, Rotate270:
		return image.Rect(0, 0, height, width)
	default:
		return image.Rect(0, 0, width, height)
	}
}

// pack writes img into dst in the native controller layout: rows of width
// pixels, most significant bit first, a cleared bit is ink.
func pack(dst []byte, width, height int, img *pixel.MonoImage, rotation Rotation) error {
	stride := (width + 7) / 8
	if len(dst) != stride*height {
		return ErrBounds
	}
	if !img.Bounds().Size().Eq(logicalBounds(width, height, rotation).Size()) {
		return ErrBounds
	}

	if rotation%4 == NoRotation && img.Stride == stride {
		for i, b := range img.Pix {
			dst[i] = ^b
		}
		return nil
	}

	for i := range dst {
		dst[i] = 0xff
	}
	r := img.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !img.IsOn(x, y) {
				continue
			}
			lx, ly := x-r.Min.X, y-r.Min.Y
			var nx, ny int
			switch rotation % 4 {
			case Rotate90:
				nx, ny = width-1-ly, lx
			case Rotate180:
				nx, ny = width-1-lx, height-1-ly
			case Rotate270:
				nx, ny = ly, height-1-lx
			default:
				nx, ny = lx, ly
			}
			dst[ny*stride+nx/8] &^= 0x80 >> uint(nx%8)
		}
	}
	return nil
}
