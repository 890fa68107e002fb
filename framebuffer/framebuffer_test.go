package framebuffer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/BeatGlow/verseclock/epd"
	"github.com/BeatGlow/verseclock/pixel"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		Name             string
		Bits             uint32
		Red, Green, Blue bitField
		Want             Format
	}{
		{"RGB565", 16, bitField{Offset: 11, Length: 5}, bitField{Offset: 5, Length: 6}, bitField{Offset: 0, Length: 5}, RGB565},
		{"BGR565", 16, bitField{Offset: 0, Length: 5}, bitField{Offset: 5, Length: 6}, bitField{Offset: 11, Length: 5}, BGR565},
		{"XRGB8888", 32, bitField{Offset: 16, Length: 8}, bitField{Offset: 8, Length: 8}, bitField{Offset: 0, Length: 8}, XRGB8888},
		{"XBGR8888", 32, bitField{Offset: 0, Length: 8}, bitField{Offset: 8, Length: 8}, bitField{Offset: 16, Length: 8}, XBGR8888},
		{"RGB555", 15, bitField{Offset: 10, Length: 5}, bitField{Offset: 5, Length: 5}, bitField{Offset: 0, Length: 5}, Unknown},
		{"RGB888", 24, bitField{Offset: 16, Length: 8}, bitField{Offset: 8, Length: 8}, bitField{Offset: 0, Length: 8}, Unknown},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			if v := parseFormat(test.Bits, test.Red, test.Green, test.Blue); v != test.Want {
				it.Errorf("expected %s, got %s", test.Want, v)
			}
		})
	}
}

func TestFormatPut(t *testing.T) {
	c := color.RGBA{R: 0xd0, G: 0x10, B: 0x10, A: 0xff}
	tests := []struct {
		Format Format
		Want   []byte
	}{
		{RGB565, []byte{0x82, 0xd0}},
		{BGR565, []byte{0x9a, 0x10}},
		{XRGB8888, []byte{0x10, 0x10, 0xd0, 0xff}},
		{XBGR8888, []byte{0xd0, 0x10, 0x10, 0xff}},
	}
	for _, test := range tests {
		t.Run(test.Format.String(), func(it *testing.T) {
			dst := make([]byte, test.Format.BytesPerPixel())
			test.Format.put(dst, c)
			if !bytes.Equal(dst, test.Want) {
				it.Errorf("expected % x, got % x", test.Want, dst)
			}
		})
	}
}

func TestNewPanel(t *testing.T) {
	t.Run("format", func(it *testing.T) {
		if _, err := newPanel("test", nil, 0, Unknown, image.Rect(0, 0, 800, 480), 360, 240, nil); !errors.Is(err, ErrFormat) {
			it.Errorf("expected ErrFormat, got %v", err)
		}
	})
	t.Run("small", func(it *testing.T) {
		if _, err := newPanel("test", nil, 0, RGB565, image.Rect(0, 0, 320, 240), 360, 240, nil); !errors.Is(err, ErrTooSmall) {
			it.Errorf("expected ErrTooSmall, got %v", err)
		}
	})
}

func TestPanelDisplay(t *testing.T) {
	const (
		screenW, screenH = 8, 6
		panelW, panelH   = 4, 2
	)
	var (
		format = XRGB8888
		stride = screenW * format.BytesPerPixel()
		pix    = make([]byte, stride*screenH)
		closed bool
	)
	p, err := newPanel("test", pix, stride, format, image.Rect(0, 0, screenW, screenH), panelW, panelH, func() error {
		closed = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if v := p.Bounds(); v != image.Rect(0, 0, panelW, panelH) {
		t.Fatalf("expected bounds of the panel, got %s", v)
	}

	black := pixel.NewMonoImage(panelW, panelH)
	red := pixel.NewMonoImage(panelW, panelH)
	black.Set(0, 0, pixel.On)
	black.Set(1, 0, pixel.On)
	red.Set(1, 0, pixel.On)
	if err = p.Display(black, red); err != nil {
		t.Fatal(err)
	}

	at := func(x, y int) []byte {
		offset := y*stride + x*format.BytesPerPixel()
		return pix[offset : offset+format.BytesPerPixel()]
	}
	tests := []struct {
		Name  string
		X, Y  int
		Color color.RGBA
	}{
		{"black", 2, 2, epd.BlackColor},
		{"red over black", 3, 2, epd.RedColor},
		{"paper", 4, 2, epd.PaperColor},
		{"paper bottom right", 5, 3, epd.PaperColor},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			want := make([]byte, format.BytesPerPixel())
			format.put(want, test.Color)
			if v := at(test.X, test.Y); !bytes.Equal(v, want) {
				it.Errorf("expected % x at %d,%d, got % x", want, test.X, test.Y, v)
			}
		})
	}
	if v := at(0, 0); !bytes.Equal(v, []byte{0, 0, 0, 0}) {
		t.Errorf("expected the screen outside the panel untouched, got % x", v)
	}

	if err = p.Display(pixel.NewMonoImage(1, 1), red); !errors.Is(err, epd.ErrBounds) {
		t.Errorf("expected ErrBounds, got %v", err)
	}
	if err = p.Close(); err != nil || !closed {
		t.Errorf("expected the device to be closed, got %v", err)
	}
}
