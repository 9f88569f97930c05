//go:build !cgo

package ocr

import "image"

// ReadGlyph always fails with ErrUnavailable in builds without cgo.
func ReadGlyph(image.Image, Options) (*Reading, error) {
	return nil, ErrUnavailable
}

// Version always fails with ErrUnavailable in builds without cgo.
func Version() (string, error) {
	return "", ErrUnavailable
}
