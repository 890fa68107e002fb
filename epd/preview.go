package epd

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/BeatGlow/verseclock/pixel"
)

// Preview colors.
var (
	PaperColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	BlackColor = color.RGBA{A: 0xff}
	RedColor   = color.RGBA{R: 0xd0, G: 0x10, B: 0x10, A: 0xff}
)

// Preview is a panel that writes every committed frame to a PNG file, for
// running without the hardware.
type Preview struct {
	name    string
	bounds  image.Rectangle
	Commits int
}

// NewPreview returns a preview panel of the given logical size writing to name.
func NewPreview(name string, width, height int) *Preview {
	return &Preview{
		name:   name,
		bounds: image.Rect(0, 0, width, height),
	}
}

func (p *Preview) String() string {
	return fmt.Sprintf("preview %dx%d to %s", p.bounds.Dx(), p.bounds.Dy(), p.name)
}

func (p *Preview) Bounds() image.Rectangle { return p.bounds }

func (p *Preview) Init() error { return nil }

func (p *Preview) Sleep() error { return nil }

func (p *Preview) Close() error { return nil }

func (p *Preview) Clear() error {
	return p.write(Compose(p.bounds, nil, nil))
}

func (p *Preview) Display(black, red *pixel.MonoImage) error {
	if !black.Bounds().Eq(p.bounds) || !red.Bounds().Eq(p.bounds) {
		return ErrBounds
	}
	if err := p.write(Compose(p.bounds, black, red)); err != nil {
		return err
	}
	p.Commits++
	return nil
}

func (p *Preview) write(img image.Image) error {
	// Write next to the target and rename, so viewers never see half a file.
	f, err := os.CreateTemp(filepath.Dir(p.name), ".preview-*.png")
	if err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err = png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), p.name)
}

// Compose renders both planes the way the panel shows them: red ink wins over
// black ink, everything else is paper. Nil planes are blank.
func Compose(r image.Rectangle, black, red *pixel.MonoImage) *image.Paletted {
	img := image.NewPaletted(r, color.Palette{PaperColor, BlackColor, RedColor})
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			switch {
			case red != nil && red.IsOn(x, y):
				img.SetColorIndex(x, y, 2)
			case black != nil && black.IsOn(x, y):
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}
