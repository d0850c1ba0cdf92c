package tile

import "image"

// Compose pastes tiles into a transparent canvas, filling the grid row by row
// in sequence order. Pixels are replaced, not blended.
func Compose(tiles []Tile, grid Grid, size Size) *image.NRGBA {
	canvas := image.NewNRGBA(grid.Canvas(size))

	for i, t := range tiles {
		x := (i % grid.Columns) * size.W
		y := (i / grid.Columns) * size.H
		copyTile(canvas, t.Image, x, y)
	}

	return canvas
}

// copyTile copies src row by row into dst at (xoff, yoff)
func copyTile(dst, src *image.NRGBA, xoff, yoff int) {
	b := src.Bounds()
	rowLen := b.Dx() * 4

	for y := 0; y < b.Dy(); y++ {
		srcIdx := src.PixOffset(b.Min.X, b.Min.Y+y)
		dstIdx := dst.PixOffset(xoff, yoff+y)
		copy(dst.Pix[dstIdx:dstIdx+rowLen], src.Pix[srcIdx:srcIdx+rowLen])
	}
}
