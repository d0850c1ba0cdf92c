package tile

// Validate checks that all tiles share the size of the first one and returns
// that size. It fails with ErrNoImages for an empty sequence.
func Validate(tiles []Tile) (Size, error) {
	if len(tiles) == 0 {
		return Size{}, ErrNoImages
	}

	want := tiles[0].Size()
	for _, t := range tiles[1:] {
		if got := t.Size(); got != want {
			return Size{}, &InconsistentSizeError{Name: t.Name, Want: want, Got: got}
		}
	}

	return want, nil
}
