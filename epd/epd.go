// Package epd contains drivers for two-color (black/red) e-paper panels.
//
// A panel is driven with full-frame updates only: both ink planes are sent to
// the controller and the whole glass is refreshed.
package epd

import (
	"errors"
	"image"
	"os"

	"github.com/BeatGlow/verseclock/pixel"
)

var debug bool

func init() {
	debug = os.Getenv("EPD_DEBUG") != ""
}

// Errors
var (
	ErrBounds      = errors.New("epd: image does not match panel bounds")
	ErrBusyTimeout = errors.New("epd: timeout waiting for panel to become idle")
	ErrClosed      = errors.New("epd: panel is closed")
)

// Rotation defines pixel rotation.
type Rotation uint8

// Supported rotations.
const (
	NoRotation Rotation = iota
	Rotate90            // Rotate 90° clock wise
	Rotate180           // Rotate 180°
	Rotate270           // Rotate 270° clock wise
)

func (r Rotation) String() string {
	switch r % 4 {
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	default:
		return "0°"
	}
}

// ParseRotation accepts the rotation spellings used on the command line.
func ParseRotation(s string) (Rotation, bool) {
	switch s {
	case "", "no", "0":
		return NoRotation, true
	case "90", "right", "cw":
		return Rotate90, true
	case "180", "flip":
		return Rotate180, true
	case "270", "left", "ccw":
		return Rotate270, true
	default:
		return NoRotation, false
	}
}

// Panel is a two-color e-paper panel.
type Panel interface {
	String() string

	// Init wakes the controller and prepares it for drawing.
	Init() error

	// Clear blanks the whole panel to paper.
	Clear() error

	// Display commits a full frame. The black plane carries the long-lived
	// ink, the red plane the accent ink. Both must match Bounds.
	Display(black, red *pixel.MonoImage) error

	// Sleep puts the controller into its lowest power state.
	Sleep() error

	// Close the panel and its connection.
	Close() error

	// Bounds are the logical (rotated) panel dimensions.
	Bounds() image.Rectangle
}
