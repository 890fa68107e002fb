package render

import (
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/BeatGlow/verseclock/fonts"
	"github.com/BeatGlow/verseclock/internal/verse"
	"github.com/BeatGlow/verseclock/pixel"
)

type testPanel struct {
	bounds  image.Rectangle
	frames  int
	black   *pixel.MonoImage
	red     *pixel.MonoImage
	failure error
}

func newTestPanel() *testPanel {
	return &testPanel{bounds: image.Rect(0, 0, 360, 240)}
}

func (p *testPanel) String() string          { return "test panel" }
func (p *testPanel) Init() error             { return nil }
func (p *testPanel) Clear() error            { return nil }
func (p *testPanel) Sleep() error            { return nil }
func (p *testPanel) Close() error            { return nil }
func (p *testPanel) Bounds() image.Rectangle { return p.bounds }

func (p *testPanel) Display(black, red *pixel.MonoImage) error {
	if p.failure != nil {
		return p.failure
	}
	p.frames++
	p.black, p.red = black, red
	return nil
}

func testRenderer(t *testing.T, panel *testPanel) *Renderer {
	t.Helper()
	set, err := fonts.Default()
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(panel, set)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestBodySize(t *testing.T) {
	tests := []struct {
		Length int
		Want   fonts.Size
	}{
		{0, fonts.Font24},
		{50, fonts.Font24},
		{79, fonts.Font24},
		{80, fonts.Font20},
		{100, fonts.Font20},
		{119, fonts.Font20},
		{120, fonts.Font16},
		{200, fonts.Font16},
		{239, fonts.Font16},
		{240, fonts.Font12},
		{300, fonts.Font12},
	}
	for _, test := range tests {
		t.Run(test.Want.String(), func(it *testing.T) {
			if v := BodySize(strings.Repeat("a", test.Length)); v != test.Want {
				it.Errorf("expected %d characters to use %s, got %s", test.Length, test.Want, v)
			}
		})
	}

	t.Run("runes", func(it *testing.T) {
		// 79 characters, 158 bytes.
		if v := BodySize(strings.Repeat("é", 79)); v != fonts.Font24 {
			it.Errorf("expected characters to be counted, got %s", v)
		}
	})
}

func TestNewSnapshot(t *testing.T) {
	r := verse.Record{Reference: "Ephesians 3:7 (Eph)", Text: "Of which I was made a minister"}
	tests := []struct {
		Time time.Time
		Want string
	}{
		{time.Date(2024, 5, 1, 3, 7, 0, 0, time.UTC), "03:07"},
		{time.Date(2024, 5, 1, 0, 5, 59, 0, time.UTC), "00:05"},
		{time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC), "23:59"},
	}
	for _, test := range tests {
		t.Run(test.Want, func(it *testing.T) {
			s := NewSnapshot(test.Time, r)
			if s.TimeText != test.Want {
				it.Errorf("expected time text %q, got %q", test.Want, s.TimeText)
			}
			if s.BookTag != "[Eph]" {
				it.Errorf("expected tag [Eph], got %q", s.BookTag)
			}
			if s.VerseText != r.Text {
				it.Errorf("expected verse text %q, got %q", r.Text, s.VerseText)
			}
		})
	}
}

func TestNew(t *testing.T) {
	set, err := fonts.Default()
	if err != nil {
		t.Fatal(err)
	}
	for _, bounds := range []image.Rectangle{
		{},
		image.Rect(0, 0, 10, 240),
		image.Rect(0, 0, 360, 20),
	} {
		t.Run(bounds.String(), func(it *testing.T) {
			_, err := New(&testPanel{bounds: bounds}, set)
			if !errors.Is(err, ErrAlloc) {
				it.Errorf("expected ErrAlloc, got %v", err)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	r := testRenderer(t, newTestPanel())

	t.Run("tagged", func(it *testing.T) {
		l := r.Layout(Snapshot{TimeText: "03:07", BookTag: "[Eph]", VerseText: "short"})
		if l.Time.Y != TimeTop {
			it.Errorf("expected time at y=%d, got %d", TimeTop, l.Time.Y)
		}
		if l.Tag.Y != TagTop {
			it.Errorf("expected tag at y=%d, got %d", TagTop, l.Tag.Y)
		}
		if want := image.Pt(BodyLeft, BodyTopTagged); l.Body != want {
			it.Errorf("expected body at %s, got %s", want, l.Body)
		}
		if l.BodySize != fonts.Font24 {
			it.Errorf("expected %s, got %s", fonts.Font24, l.BodySize)
		}
		if len(l.BodyLines) != 1 || l.BodyLines[0] != "short" {
			it.Errorf("expected one body line, got %q", l.BodyLines)
		}
	})

	t.Run("untagged", func(it *testing.T) {
		l := r.Layout(Snapshot{TimeText: "03:07", VerseText: "short"})
		if want := image.Pt(BodyLeft, BodyTop); l.Body != want {
			it.Errorf("expected body at %s, got %s", want, l.Body)
		}
	})

	t.Run("centered", func(it *testing.T) {
		l := r.Layout(Snapshot{TimeText: "03:07", BookTag: "[Eph]"})
		if l.Time.X <= 0 || l.Time.X >= 355/2 {
			it.Errorf("expected time to be centered, got x=%d", l.Time.X)
		}
		if l.Tag.X <= l.Time.X {
			it.Errorf("expected the shorter tag to start right of the time, got tag x=%d time x=%d", l.Tag.X, l.Time.X)
		}
	})

	t.Run("wrapped", func(it *testing.T) {
		text := strings.TrimSpace(strings.Repeat("grace and peace ", 15))
		l := r.Layout(Snapshot{TimeText: "03:07", VerseText: text})
		if l.BodySize != fonts.Font16 {
			it.Errorf("expected %s for %d characters, got %s", fonts.Font16, len(text), l.BodySize)
		}
		if len(l.BodyLines) < 2 {
			it.Fatalf("expected the body to wrap, got %q", l.BodyLines)
		}
		if joined := strings.Join(l.BodyLines, " "); joined != text {
			it.Errorf("expected wrapped lines to keep every word, got %q", joined)
		}
		if l.LineHeight <= int(fonts.Font16) {
			it.Errorf("expected line height above the font size, got %d", l.LineHeight)
		}
	})
}

func TestRender(t *testing.T) {
	r := testRenderer(t, newTestPanel())
	s := NewSnapshot(
		time.Date(2024, 5, 1, 3, 7, 0, 0, time.Local),
		verse.Record{Reference: "Ephesians 3:7 (Eph)", Text: "Whereof I was made a minister, according to the gift of the grace of God."},
	)
	black, red := r.Render(s)

	timeInk := red.InkBounds(image.Rect(0, 0, 360, TagTop))
	if timeInk.Empty() {
		t.Fatal("expected the time on the red plane")
	}
	if center := (timeInk.Min.X + timeInk.Max.X) / 2; center < 355/2-6 || center > 355/2+6 {
		t.Errorf("expected the time centered on x=%d, ink spans %s", 355/2, timeInk)
	}
	if timeInk.Min.Y < TimeTop {
		t.Errorf("expected no time ink above y=%d, ink spans %s", TimeTop, timeInk)
	}

	tagInk := red.InkBounds(image.Rect(0, TagTop, 360, BodyTopTagged))
	if tagInk.Empty() {
		t.Error("expected the book tag on the red plane")
	}
	if ink := red.InkBounds(image.Rect(0, BodyTopTagged, 360, 240)); !ink.Empty() {
		t.Errorf("expected no red ink in the body, got %s", ink)
	}

	bodyInk := black.InkBounds(black.Bounds())
	if bodyInk.Empty() {
		t.Fatal("expected the verse on the black plane")
	}
	if bodyInk.Min.Y < BodyTopTagged || bodyInk.Min.X < BodyLeft {
		t.Errorf("expected body ink below and right of %s, got %s", image.Pt(BodyLeft, BodyTopTagged), bodyInk)
	}
	if bodyInk.Max.X > 355 {
		t.Errorf("expected body ink within the usable width, got %s", bodyInk)
	}

	t.Run("redraw", func(it *testing.T) {
		black, red := r.Render(Snapshot{TimeText: "03:08"})
		if ink := black.InkBounds(black.Bounds()); !ink.Empty() {
			it.Errorf("expected the previous body to be cleared, got %s", ink)
		}
		if ink := red.InkBounds(image.Rect(0, TagTop, 360, 240)); !ink.Empty() {
			it.Errorf("expected the previous tag to be cleared, got %s", ink)
		}
	})
}

func TestShow(t *testing.T) {
	panel := newTestPanel()
	r := testRenderer(t, panel)

	if err := r.Show(Placeholder()); err != nil {
		t.Fatal(err)
	}
	if panel.frames != 1 {
		t.Fatalf("expected 1 frame, got %d", panel.frames)
	}
	if panel.red.InkBounds(panel.red.Bounds()).Empty() {
		t.Error("expected placeholder ink on the red plane")
	}
	if panel.black.InkBounds(panel.black.Bounds()).Empty() {
		t.Error("expected placeholder ink on the black plane")
	}

	panel.failure = errors.New("busy")
	if err := r.Show(Placeholder()); !errors.Is(err, panel.failure) {
		t.Errorf("expected the panel error, got %v", err)
	}
}
