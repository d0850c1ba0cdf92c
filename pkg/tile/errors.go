package tile

import (
	"errors"
	"fmt"
)

// ErrNoImages is returned when no usable tile was found.
var ErrNoImages = errors.New("no images found")

// InconsistentSizeError reports a tile whose size differs from the first tile.
type InconsistentSizeError struct {
	Name string
	Want Size
	Got  Size
}

func (e *InconsistentSizeError) Error() string {
	return fmt.Sprintf("inconsistent tile size: %s is %dx%d, expected %dx%d",
		e.Name, e.Got.W, e.Got.H, e.Want.W, e.Want.H)
}

// ImageFormatError reports a decoded image that is not an 8-bit RGBA raster.
// The loader drops such entries, it never returns this error.
type ImageFormatError struct {
	Name  string
	Model string
}

func (e *ImageFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported pixel format %s, want 8-bit RGBA", e.Name, e.Model)
}

// UnsupportedFormatError reports an output filename without a known encoder.
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported output format: %s", e.Filename)
}
