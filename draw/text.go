package draw

import (
	"image"
	"image/color"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// TextWidth is the advance width of s in whole pixels.
func TextWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// LineHeight is the distance between two consecutive baselines of face.
func LineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// Text draws s with the top-left corner of its line box at pt.
func Text(dst Image, face font.Face, pt image.Point, s string, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(pt.X, pt.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// CenteredX returns the x offset that centers s inside a span of width pixels.
// Text wider than the span starts at 0.
func CenteredX(face font.Face, s string, width int) int {
	x := (width - TextWidth(face, s)) / 2
	if x < 0 {
		return 0
	}
	return x
}

// Wrap breaks s at spaces into lines no wider than width pixels. Words that do
// not fit on a line of their own are split between characters.
func Wrap(face font.Face, s string, width int) []string {
	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(s) {
		if line == "" {
			line = word
		} else if candidate := line + " " + word; TextWidth(face, candidate) <= width {
			line = candidate
			continue
		} else {
			lines = append(lines, line)
			line = word
		}

		for TextWidth(face, line) > width && utf8.RuneCountInString(line) > 1 {
			cut := fitPrefix(face, line, width)
			lines = append(lines, line[:cut])
			line = line[cut:]
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// fitPrefix returns the byte length of the longest prefix of s that fits in
// width pixels, and always at least one rune.
func fitPrefix(face font.Face, s string, width int) int {
	cut := 0
	for i, r := range s {
		end := i + utf8.RuneLen(r)
		if TextWidth(face, s[:end]) > width {
			break
		}
		cut = end
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(s)
		cut = size
	}
	return cut
}
