// Package render lays out the time, book tag and verse body and draws them
// into the two ink planes of the panel.
//
// The accent (red) plane carries the time and the book tag, the primary
// (black) plane the verse body. Every frame is drawn from scratch.
package render

import (
	"errors"
	"fmt"
	"image"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/BeatGlow/verseclock/draw"
	"github.com/BeatGlow/verseclock/epd"
	"github.com/BeatGlow/verseclock/fonts"
	"github.com/BeatGlow/verseclock/internal/verse"
	"github.com/BeatGlow/verseclock/pixel"
)

// ErrAlloc is returned when the frame buffers cannot be set up.
var ErrAlloc = errors.New("render: frame allocation failed")

// Fixed layout, in pixels of the landscape drawing surface.
const (
	RightMargin   = 5
	TimeTop       = 10
	TagTop        = 50
	BodyLeft      = 10
	BodyTop       = 60
	BodyTopTagged = 90
	LineSpacing   = 2

	TimeFont = fonts.Font32
	TagFont  = fonts.Font20
)

// Snapshot is the content of one frame.
type Snapshot struct {
	TimeText  string
	BookTag   string
	VerseText string
}

// NewSnapshot builds the frame content for t showing r.
func NewSnapshot(t time.Time, r verse.Record) Snapshot {
	return Snapshot{
		TimeText:  fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()),
		BookTag:   r.BookTag(),
		VerseText: r.Text,
	}
}

// Placeholder is shown when no time is known at startup.
func Placeholder() Snapshot {
	return Snapshot{
		TimeText:  "0:00",
		BookTag:   "WiFi Error",
		VerseText: "Display will not update until time is synchronized.",
	}
}

// IsEmpty reports whether there is no verse content to show.
func (s Snapshot) IsEmpty() bool {
	return s.BookTag == "" && s.VerseText == ""
}

// BodySize picks the verse font from the length of the text in characters.
func BodySize(text string) fonts.Size {
	switch n := utf8.RuneCountInString(text); {
	case n < 80:
		return fonts.Font24
	case n < 120:
		return fonts.Font20
	case n < 240:
		return fonts.Font16
	default:
		return fonts.Font12
	}
}

// Layout is the placement of every element of a frame. Points are the
// top-left corners of the text line boxes.
type Layout struct {
	Time image.Point

	// Tag is only meaningful when the snapshot has a book tag.
	Tag image.Point

	Body       image.Point
	BodySize   fonts.Size
	BodyLines  []string
	LineHeight int
}

// Renderer owns the two frame buffers and commits them to a panel.
type Renderer struct {
	panel epd.Panel
	fonts *fonts.Set
	width int
	black *pixel.MonoImage
	red   *pixel.MonoImage
}

// New allocates frame buffers matching the panel bounds.
func New(panel epd.Panel, set *fonts.Set) (*Renderer, error) {
	bounds := panel.Bounds()
	if bounds.Dx() <= RightMargin+BodyLeft || bounds.Dy() <= BodyTopTagged {
		return nil, fmt.Errorf("%w: panel bounds %s too small", ErrAlloc, bounds)
	}
	r := &Renderer{
		panel: panel,
		fonts: set,
		width: bounds.Dx() - RightMargin,
		black: pixel.NewMonoImage(bounds.Dx(), bounds.Dy()),
		red:   pixel.NewMonoImage(bounds.Dx(), bounds.Dy()),
	}
	return r, nil
}

// Layout computes where the snapshot goes. It has no side effects.
func (r *Renderer) Layout(s Snapshot) Layout {
	var (
		timeFace = r.fonts.MustFace(TimeFont)
		tagFace  = r.fonts.MustFace(TagFont)
		bodySize = BodySize(s.VerseText)
		bodyFace = r.fonts.MustFace(bodySize)
		l        = Layout{
			Time:       image.Pt(draw.CenteredX(timeFace, s.TimeText, r.width), TimeTop),
			Body:       image.Pt(BodyLeft, BodyTop),
			BodySize:   bodySize,
			BodyLines:  draw.Wrap(bodyFace, s.VerseText, r.width-BodyLeft),
			LineHeight: draw.LineHeight(bodyFace) + LineSpacing,
		}
	)
	if s.BookTag != "" {
		l.Tag = image.Pt(draw.CenteredX(tagFace, s.BookTag, r.width), TagTop)
		l.Body.Y = BodyTopTagged
	}
	return l
}

// Render clears both planes and draws the snapshot. The returned planes are
// owned by the Renderer and overwritten by the next call.
func (r *Renderer) Render(s Snapshot) (black, red *pixel.MonoImage) {
	l := r.Layout(s)

	r.red.Clear()
	draw.Text(r.red, r.fonts.MustFace(TimeFont), l.Time, s.TimeText, pixel.On)
	if s.BookTag != "" {
		draw.Text(r.red, r.fonts.MustFace(TagFont), l.Tag, s.BookTag, pixel.On)
	}

	r.black.Clear()
	bodyFace := r.fonts.MustFace(l.BodySize)
	for i, line := range l.BodyLines {
		draw.Text(r.black, bodyFace, l.Body.Add(image.Pt(0, i*l.LineHeight)), line, pixel.On)
	}
	if bottom := l.Body.Y + len(l.BodyLines)*l.LineHeight; bottom > r.black.Rect.Max.Y {
		log.Warn().Int("lines", len(l.BodyLines)).Int("bottom", bottom).Msg("verse body overflows the panel")
	}
	return r.black, r.red
}

// Show renders the snapshot and commits it to the panel. The commit blocks
// until the panel has refreshed.
func (r *Renderer) Show(s Snapshot) error {
	black, red := r.Render(s)
	start := time.Now()
	if err := r.panel.Display(black, red); err != nil {
		return fmt.Errorf("render: commit to %s: %w", r.panel, err)
	}
	log.Info().
		Str("time", s.TimeText).
		Str("tag", s.BookTag).
		Int("chars", utf8.RuneCountInString(s.VerseText)).
		Stringer("font", BodySize(s.VerseText)).
		Dur("took", time.Since(start)).
		Msg("display updated")
	return nil
}
