package draw

import (
	"image"
	"image/color"
)

// Rectangle draws the one pixel outline of rect.
func Rectangle(dst Image, rect image.Rectangle, c color.Color) {
	if rect.Empty() {
		return
	}
	Box(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+1), c)
	Box(dst, image.Rect(rect.Min.X, rect.Max.Y-1, rect.Max.X, rect.Max.Y), c)
	Box(dst, image.Rect(rect.Min.X, rect.Min.Y+1, rect.Min.X+1, rect.Max.Y-1), c)
	Box(dst, image.Rect(rect.Max.X-1, rect.Min.Y+1, rect.Max.X, rect.Max.Y-1), c)
}

// Box fills rect, clipped to dst.
func Box(dst Image, rect image.Rectangle, c color.Color) {
	rect = rect.Intersect(dst.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, y, c)
		}
	}
}

// RoundedBox fills rect with its corners rounded to radius pixels. The radius
// is capped at half the shorter side.
func RoundedBox(dst Image, rect image.Rectangle, radius int, c color.Color) {
	if rect.Empty() {
		return
	}
	radius = max(0, min(radius, rect.Dx()/2, rect.Dy()/2))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		inset := cornerInset(radius, min(y-rect.Min.Y, rect.Max.Y-1-y))
		Box(dst, image.Rect(rect.Min.X+inset, y, rect.Max.X-inset, y+1), c)
	}
}

// cornerInset counts the pixels of a rounded corner row whose centers fall
// outside the circle, row counting from the outer edge.
func cornerInset(radius, row int) int {
	if row >= radius {
		return 0
	}
	dy := 2*(radius-row) - 1
	inset := 0
	for inset < radius {
		dx := 2*(radius-inset) - 1
		if dx*dx+dy*dy <= 4*radius*radius {
			break
		}
		inset++
	}
	return inset
}
