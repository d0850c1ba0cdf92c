package tile

import "math"

// OptimalGrid picks the column count for count tiles of the given size.
//
// Every column count from 1 to count is tried with the fewest rows that still
// hold all tiles. A candidate is scored by the longer side of its canvas in
// pixels, not by its area, and the first candidate with the lowest score wins.
// Changing the score changes cell placement for existing sheets.
func OptimalGrid(count int, size Size) Grid {
	var best Grid
	bestDim := math.MaxInt

	for cols := 1; cols <= count; cols++ {
		rows := rowsFor(cols, count)
		dim := max(rows*size.H, cols*size.W)
		if dim < bestDim {
			best = Grid{Columns: cols, Rows: rows}
			bestDim = dim
		}
	}

	return best
}

// rowsFor returns ceil(count / cols)
func rowsFor(cols, count int) int {
	return (count + cols - 1) / cols
}
