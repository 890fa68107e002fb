package pixel

import (
	"image"
	"image/color"

	"github.com/BeatGlow/verseclock/draw"
)

type Image interface {
	draw.Image

	// Clear the image.
	Clear()

	// Fill the image with a single color.
	Fill(color.Color)
}

// Buffer holds the pixel values and is a container that is used by most image formats in this package.
type Buffer struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Buffer) Clear() {
	for i := range p.Pix {
		p.Pix[i] = 0x00
	}
}

func makeBuffer(w, h, stride, size int) Buffer {
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]byte, size),
		Stride: stride,
	}
}

// MonoImage is a 1-bit per pixel monochrome image.
//
// Rows are packed most significant bit first, the layout expected by the RAM
// of most e-paper controllers. A set bit is ink.
type MonoImage struct {
	Buffer
}

func NewMonoImage(w, h int) *MonoImage {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	stride := ((w + 7) & ^7) / 8 // round up to whole bytes
	return &MonoImage{
		Buffer: makeBuffer(w, h, stride, stride*h),
	}
}

func (p *MonoImage) ColorModel() color.Model {
	return MonoModel
}

func (p *MonoImage) PixOffset(x, y int) int {
	return y*p.Stride + x/8
}

// IsOn reports whether the pixel at (x, y) carries ink.
func (p *MonoImage) IsOn(x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return false
	}
	return p.Pix[p.PixOffset(x, y)]&(0x80>>uint(x%8)) != 0
}

func (p *MonoImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}
	if p.IsOn(x, y) {
		return On
	}
	return Off
}

func (p *MonoImage) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	index := p.PixOffset(x, y)
	bit := byte(0x80) >> uint(x%8)
	if monoModel(c).(Mono).On {
		p.Pix[index] |= bit
	} else {
		p.Pix[index] &^= bit
	}
}

func (p *MonoImage) Fill(c color.Color) {
	var value byte
	if monoModel(c).(Mono).On {
		value = 0xff
	}
	for i := range p.Pix {
		p.Pix[i] = value
	}
}

// InkBounds returns the smallest rectangle holding every inked pixel inside r.
// The result is empty when r carries no ink.
func (p *MonoImage) InkBounds(r image.Rectangle) image.Rectangle {
	var (
		ink   image.Rectangle
		found bool
	)
	r = r.Intersect(p.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !p.IsOn(x, y) {
				continue
			}
			pt := image.Rect(x, y, x+1, y+1)
			if !found {
				ink, found = pt, true
			} else {
				ink = ink.Union(pt)
			}
		}
	}
	return ink
}
