// Package framebuffer mirrors the panel onto the operating system's native
// framebuffer, such as a small HDMI or SPI TFT screen used on the bench.
//
// Frames are composed the way the e-paper panel shows them and centered on the
// screen. Only 16 and 32 bits per pixel RGB layouts are supported.
package framebuffer

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/BeatGlow/verseclock/epd"
	"github.com/BeatGlow/verseclock/pixel"
)

// Errors
var (
	ErrNotSupported = errors.New("framebuffer: not supported")
	ErrFormat       = errors.New("framebuffer: unsupported pixel format")
	ErrTooSmall     = errors.New("framebuffer: screen smaller than panel")
)

// Format is a pixel layout in framebuffer memory.
type Format int

// Formats
const (
	Unknown Format = iota
	RGB565
	BGR565
	XRGB8888
	XBGR8888
)

func (f Format) String() string {
	switch f {
	case RGB565:
		return "RGB565"
	case BGR565:
		return "BGR565"
	case XRGB8888:
		return "XRGB8888"
	case XBGR8888:
		return "XBGR8888"
	default:
		return "unknown"
	}
}

// BytesPerPixel is the size of one pixel in memory.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGB565, BGR565:
		return 2
	case XRGB8888, XBGR8888:
		return 4
	default:
		return 0
	}
}

// put stores c at the start of dst, little endian.
func (f Format) put(dst []byte, c color.RGBA) {
	switch f {
	case RGB565:
		v := uint16(c.R&0xf8)<<8 | uint16(c.G&0xfc)<<3 | uint16(c.B)>>3
		dst[0], dst[1] = byte(v), byte(v>>8)
	case BGR565:
		v := uint16(c.B&0xf8)<<8 | uint16(c.G&0xfc)<<3 | uint16(c.R)>>3
		dst[0], dst[1] = byte(v), byte(v>>8)
	case XRGB8888:
		dst[0], dst[1], dst[2], dst[3] = c.B, c.G, c.R, 0xff
	case XBGR8888:
		dst[0], dst[1], dst[2], dst[3] = c.R, c.G, c.B, 0xff
	}
}

// bitField is the position of one color channel in a pixel.
type bitField struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

func parseFormat(bitsPerPixel uint32, red, green, blue bitField) Format {
	switch {
	case bitsPerPixel == 16 && red.Offset == 11 && red.Length == 5 && green.Offset == 5 && green.Length == 6 && blue.Offset == 0 && blue.Length == 5:
		return RGB565
	case bitsPerPixel == 16 && blue.Offset == 11 && blue.Length == 5 && green.Offset == 5 && green.Length == 6 && red.Offset == 0 && red.Length == 5:
		return BGR565
	case bitsPerPixel == 32 && red.Offset == 16 && green.Offset == 8 && blue.Offset == 0:
		return XRGB8888
	case bitsPerPixel == 32 && blue.Offset == 16 && green.Offset == 8 && red.Offset == 0:
		return XBGR8888
	default:
		return Unknown
	}
}

// Panel shows frames on a framebuffer. It satisfies epd.Panel.
type Panel struct {
	name   string
	pix    []byte
	stride int
	format Format
	screen image.Rectangle
	origin image.Point
	bounds image.Rectangle
	close  func() error
}

func newPanel(name string, pix []byte, stride int, format Format, screen image.Rectangle, width, height int, close func() error) (*Panel, error) {
	if format.BytesPerPixel() == 0 {
		return nil, ErrFormat
	}
	if screen.Dx() < width || screen.Dy() < height {
		return nil, fmt.Errorf("%w: %s for %dx%d", ErrTooSmall, screen.Size(), width, height)
	}
	return &Panel{
		name:   name,
		pix:    pix,
		stride: stride,
		format: format,
		screen: screen,
		origin: screen.Min.Add(image.Pt((screen.Dx()-width)/2, (screen.Dy()-height)/2)),
		bounds: image.Rect(0, 0, width, height),
		close:  close,
	}, nil
}

func (p *Panel) String() string {
	return fmt.Sprintf("framebuffer %s %s %s", p.name, p.screen.Size(), p.format)
}

func (p *Panel) Bounds() image.Rectangle { return p.bounds }

func (p *Panel) Init() error { return nil }

func (p *Panel) Sleep() error { return nil }

// Clear paints the panel area with paper.
func (p *Panel) Clear() error {
	p.blit(epd.Compose(p.bounds, nil, nil))
	return nil
}

func (p *Panel) Display(black, red *pixel.MonoImage) error {
	if !black.Bounds().Eq(p.bounds) || !red.Bounds().Eq(p.bounds) {
		return epd.ErrBounds
	}
	p.blit(epd.Compose(p.bounds, black, red))
	return nil
}

func (p *Panel) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

func (p *Panel) blit(frame *image.Paletted) {
	bpp := p.format.BytesPerPixel()
	for y := 0; y < p.bounds.Dy(); y++ {
		offset := (p.origin.Y+y)*p.stride + p.origin.X*bpp
		for x := 0; x < p.bounds.Dx(); x++ {
			c := frame.Palette[frame.ColorIndexAt(x, y)].(color.RGBA)
			p.format.put(p.pix[offset+x*bpp:], c)
		}
	}
}
