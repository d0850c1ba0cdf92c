// Package assembler turns a directory of equally sized tiles into a
// spritesheet held in memory.
package assembler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"

	"github.com/kiesman99/assembler/pkg/tile"
)

// Options contains the assembly parameters
type Options struct {
	Root   string // directory containing the tile subdirectory
	Output string // output filename, selects the encoder
}

// Result contains the assembled spritesheet
type Result struct {
	ImageData []byte
	Image     *image.NRGBA
	Format    imaging.Format
	Grid      tile.Grid
	TileSize  tile.Size
	Tiles     int
}

// Width returns the canvas width in pixels.
func (r *Result) Width() int {
	return r.Image.Bounds().Dx()
}

// Height returns the canvas height in pixels.
func (r *Result) Height() int {
	return r.Image.Bounds().Dy()
}

// Assembler runs the load, validate, layout, compose and encode steps
type Assembler struct {
	fs     afero.Fs
	logger *log.Logger
}

// New creates a new assembler reading tiles from fs
func New(fs afero.Fs, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Assembler{
		fs:     fs,
		logger: logger,
	}
}

// Assemble builds and encodes the spritesheet described by opts
func (a *Assembler) Assemble(ctx context.Context, opts *Options) (*Result, error) {
	output := opts.Output
	if output == "" {
		output = tile.DefaultOutput
	}

	// Resolve the encoder first so a bad extension fails before any decoding
	format, err := tile.FormatFromFilename(output)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tiles, err := tile.NewLoader(a.fs, a.logger).Load(ctx, opts.Root)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("load", "tiles", len(tiles), "took", time.Since(start).Round(time.Millisecond))

	size, err := tile.Validate(tiles)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grid := tile.OptimalGrid(len(tiles), size)
	a.logger.Debug("layout", "columns", grid.Columns, "rows", grid.Rows, "tile", fmt.Sprintf("%dx%d", size.W, size.H))

	canvas := tile.Compose(tiles, grid, size)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tile.Encode(&buf, canvas, format); err != nil {
		return nil, fmt.Errorf("failed to encode output image: %w", err)
	}

	a.logger.Info("assembled spritesheet",
		"tiles", len(tiles),
		"grid", fmt.Sprintf("%dx%d", grid.Columns, grid.Rows),
		"size", fmt.Sprintf("%dx%d", canvas.Bounds().Dx(), canvas.Bounds().Dy()),
		"took", time.Since(start).Round(time.Millisecond))

	return &Result{
		ImageData: buf.Bytes(),
		Image:     canvas,
		Format:    format,
		Grid:      grid,
		TileSize:  size,
		Tiles:     len(tiles),
	}, nil
}
