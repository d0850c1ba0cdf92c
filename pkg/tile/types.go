package tile

import "image"

// TileDir is the subdirectory of the root that is searched for tiles.
const TileDir = "temp"

// DefaultOutput is the spritesheet filename used when none is configured.
const DefaultOutput = "out.png"

// Tile is a single decoded source image.
type Tile struct {
	Name  string // path relative to the search directory
	Image *image.NRGBA
}

// Size returns the pixel dimensions of the tile.
func (t Tile) Size() Size {
	b := t.Image.Bounds()
	return Size{W: b.Dx(), H: b.Dy()}
}

// Size is the pixel size of one tile
type Size struct {
	W, H int
}

// Grid is the number of tiles per axis of a spritesheet
type Grid struct {
	Columns, Rows int
}

// Cells returns how many tiles fit into the grid.
func (g Grid) Cells() int {
	return g.Columns * g.Rows
}

// Canvas returns the pixel bounds of a canvas holding g cells of the given size.
func (g Grid) Canvas(s Size) image.Rectangle {
	return image.Rect(0, 0, g.Columns*s.W, g.Rows*s.H)
}

// Config contains everything needed to assemble one spritesheet
type Config struct {
	Root   string // directory holding the TileDir subdirectory
	Output string // output filename, relative to Root unless absolute
}
