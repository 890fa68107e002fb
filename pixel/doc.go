// Package pixel implements the 1-bit ink planes used by two-color e-paper panels.
//
// The types are compatible with Go's native [color.Color] and [image.Image] /
// [draw.Image] interfaces, so the standard drawing and font packages can render
// into them directly.
package pixel
