package tile

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

// ContentTypes maps output formats to their MIME types.
var ContentTypes = map[imaging.Format]string{
	imaging.PNG:  "image/png",
	imaging.JPEG: "image/jpeg",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

// FormatFromFilename returns the encoder matching the extension of name.
func FormatFromFilename(name string) (imaging.Format, error) {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return 0, &UnsupportedFormatError{Filename: name}
	}
	return format, nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format imaging.Format) error {
	return imaging.Encode(w, img, format)
}

// OutputPath returns where the spritesheet of cfg is written.
func OutputPath(cfg *Config) string {
	output := cfg.Output
	if output == "" {
		output = DefaultOutput
	}
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(cfg.Root, output)
}

// WriteBytes writes already encoded image data to path.
func WriteBytes(fs afero.Fs, path string, data []byte) error {
	if err := afero.WriteFile(fs, path, data, os.FileMode(0o644)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
