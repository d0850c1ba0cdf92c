// Package stitch writes spritesheets to disk for the command line.
package stitch

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/kiesman99/assembler/internal/assembler"
	"github.com/kiesman99/assembler/pkg/tile"
)

// Stitcher assembles the tiles under a root directory and persists the result
type Stitcher struct {
	fs        afero.Fs
	assembler *assembler.Assembler
	config    *tile.Config
	logger    *log.Logger
}

// NewStitcher creates a new stitcher working on the OS filesystem
func NewStitcher(cfg *tile.Config, logger *log.Logger) *Stitcher {
	return NewStitcherFs(afero.NewOsFs(), cfg, logger)
}

// NewStitcherFs creates a new stitcher working on fs
func NewStitcherFs(fs afero.Fs, cfg *tile.Config, logger *log.Logger) *Stitcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Stitcher{
		fs:        fs,
		assembler: assembler.New(fs, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Run assembles the spritesheet and writes it to the configured output path.
// Nothing is written unless the whole sheet was built and encoded.
func (s *Stitcher) Run(ctx context.Context) error {
	result, err := s.assembler.Assemble(ctx, &assembler.Options{
		Root:   s.config.Root,
		Output: s.config.Output,
	})
	if err != nil {
		return err
	}

	path := tile.OutputPath(s.config)
	if err := tile.WriteBytes(s.fs, path, result.ImageData); err != nil {
		return err
	}

	s.logger.Debug("wrote spritesheet", "path", path, "bytes", len(result.ImageData))
	return nil
}
