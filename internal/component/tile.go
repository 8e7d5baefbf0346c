package component

// Tile is the glyph an entity is drawn with.
type Tile struct {
	Glyph rune
}
