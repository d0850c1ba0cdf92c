package tile

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"

	// imaging registers png, jpeg, gif, bmp and tiff; webp is extra.
	_ "golang.org/x/image/webp"
)

// Loader discovers and decodes tiles below a root directory.
type Loader struct {
	fs     afero.Fs
	logger *log.Logger
}

// NewLoader creates a loader reading from fs. A nil logger discards output.
func NewLoader(fs afero.Fs, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{fs: fs, logger: logger}
}

// Load walks root/TileDir and returns every usable tile in name order.
//
// Entries are visited sorted by name within each directory, so the result
// does not depend on the order the filesystem lists them in. Entries that
// cannot be opened, cannot be decoded or are not 8-bit RGBA rasters are
// skipped. A missing tile directory yields no tiles.
func (l *Loader) Load(ctx context.Context, root string) ([]Tile, error) {
	dir := filepath.Join(root, TileDir)

	var tiles []Tile
	err := afero.Walk(l.fs, dir, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			l.logger.Debug("skipping entry", "path", path, "err", err)
			return nil
		}
		if info.IsDir() {
			return nil
		}

		name, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			name = path
		}
		name = filepath.ToSlash(name)

		img, err := l.decode(path, name)
		if err != nil {
			l.logger.Debug("skipping entry", "path", path, "err", err)
			return nil
		}

		tiles = append(tiles, Tile{Name: name, Image: img})
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("loaded tiles", "dir", dir, "count", len(tiles))
	return tiles, nil
}

// decode opens path and converts it to an 8-bit non-premultiplied RGBA image
func (l *Loader) decode(path, name string) (*image.NRGBA, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	switch m := img.(type) {
	case *image.NRGBA:
		return m, nil
	case *image.Paletted:
		// GIF frames only, indexed PNGs are skipped.
		if format == "gif" {
			return imaging.Clone(m), nil
		}
	}

	// Includes *image.RGBA, which the PNG decoder only returns for
	// truecolor files without an alpha channel.
	return nil, &ImageFormatError{Name: name, Model: fmt.Sprintf("%s %T", format, img)}
}
