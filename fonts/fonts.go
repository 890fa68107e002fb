// Package fonts provides the fixed set of font faces used on the panel.
//
// Faces are rasterized with freetype from a single TrueType font; the embedded
// Go Mono font is used unless another font file is supplied.
package fonts

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// Size is a font size in pixels.
type Size int

// Available sizes.
const (
	Font12 Size = 12
	Font16 Size = 16
	Font20 Size = 20
	Font24 Size = 24
	Font32 Size = 32
)

// Sizes lists every size a [Set] provides, smallest first.
var Sizes = []Size{Font12, Font16, Font20, Font24, Font32}

// ErrSize is returned for a size outside of [Sizes].
var ErrSize = errors.New("fonts: unsupported size")

func (s Size) String() string {
	return fmt.Sprintf("Font%d", int(s))
}

// Set holds one face per supported size.
type Set struct {
	faces map[Size]font.Face
}

// Default parses the embedded Go Mono font.
func Default() (*Set, error) {
	return Parse(gomono.TTF)
}

// Load parses the TrueType font in the named file. An empty name selects the
// embedded font.
func Load(name string) (*Set, error) {
	if name == "" {
		return Default()
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse creates a Set from raw TrueType data.
func Parse(ttf []byte) (*Set, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("fonts: %w", err)
	}

	s := &Set{faces: make(map[Size]font.Face, len(Sizes))}
	for _, size := range Sizes {
		// At 72 DPI one point is one pixel.
		s.faces[size] = truetype.NewFace(f, &truetype.Options{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
	return s, nil
}

// Face returns the face of the given size.
func (s *Set) Face(size Size) (font.Face, error) {
	face, ok := s.faces[size]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrSize, int(size))
	}
	return face, nil
}

// MustFace is like Face but panics on an unsupported size.
func (s *Set) MustFace(size Size) font.Face {
	face, err := s.Face(size)
	if err != nil {
		panic(err)
	}
	return face
}
