package framebuffer

import (
	"fmt"
	"image"
	"os"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog/log"

	"github.com/BeatGlow/verseclock/internal/ioctl"
)

const (
	// From <linux/fb.h>
	fbioGetVScreenInfo ioctl.Command = 0x4600
	fbioGetFScreenInfo ioctl.Command = 0x4602
)

type linuxFixScreenInfo struct {
	ID         [16]byte  // Identification string eg "TT Builtin"
	SmemStart  uintptr   // Start of frame buffer mem
	SmemLen    uint32    // Length of frame buffer mem
	Type       uint32    // FB_TYPE_
	TypeAux    uint32    // Interleave for interleaved Planes
	Visual     uint32    // FB_VISUAL_
	Xpanstep   uint16    // Zero if no hardware panning
	Ypanstep   uint16    // Zero if no hardware panning
	Ywrapstep  uint16    // Zero if no hardware ywrap
	LineLength uint32    // Length of a line in bytes
	MmioStart  uintptr   // Start of Memory Mapped I/O (physical address)
	MmioLen    uint32    // Length of Memory Mapped I/O
	Accel      uint32    // Type of acceleration available
	Reserved   [3]uint16 // Reserved for future compatibility
}

type linuxVarScreenInfo struct {
	Xres                    uint32
	Yres                    uint32
	XresVirtual             uint32
	YresVirtual             uint32
	Xoffset                 uint32
	Yoffset                 uint32
	BitsPerPixel            uint32
	Grayscale               uint32
	Red, Green, Blue, Alpha bitField
	Nonstd                  uint32
	Activate                uint32
	Height                  uint32
	Width                   uint32
	AccelFlags              uint32
	Pixclock                uint32
	LeftMargin              uint32
	RightMargin             uint32
	UpperMargin             uint32
	LowerMargin             uint32
	HsyncLen                uint32
	VsyncLen                uint32
	Sync                    uint32
	Vmode                   uint32
	Rotate                  uint32
	Colorspace              uint32
	Reserved                [4]uint32
}

// Open a Linux framebuffer device (fbdev) by name, typically /dev/fb0, as a
// panel of the given logical size.
func Open(name string, width, height int) (*Panel, error) {
	f, err := os.OpenFile(name, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, err
	}

	var (
		fix    linuxFixScreenInfo
		screen linuxVarScreenInfo
	)
	if err = ioctl.Call(f.Fd(), fbioGetFScreenInfo, uintptr(unsafe.Pointer(&fix))); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err = ioctl.Call(f.Fd(), fbioGetVScreenInfo, uintptr(unsafe.Pointer(&screen))); err != nil {
		_ = f.Close()
		return nil, err
	}

	format := parseFormat(screen.BitsPerPixel, screen.Red, screen.Green, screen.Blue)
	if format == Unknown {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %d bpp", ErrFormat, screen.BitsPerPixel)
	}

	pix, err := syscall.Mmap(int(f.Fd()), 0, int(fix.SmemLen), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	log.Debug().Str("device", name).Uint32("xres", screen.Xres).Uint32("yres", screen.Yres).Stringer("format", format).Msg("mapped framebuffer")

	rect := image.Rect(
		int(screen.Xoffset), int(screen.Yoffset),
		int(screen.Xoffset+screen.Xres), int(screen.Yoffset+screen.Yres),
	)
	p, err := newPanel(name, pix, int(fix.LineLength), format, rect, width, height, func() error {
		if err := syscall.Munmap(pix); err != nil {
			return err
		}
		return f.Close()
	})
	if err != nil {
		_ = syscall.Munmap(pix)
		_ = f.Close()
		return nil, err
	}
	return p, nil
}
