//go:build !linux

package framebuffer

// Open is only implemented on Linux.
func Open(_ string, _, _ int) (*Panel, error) {
	return nil, ErrNotSupported
}
