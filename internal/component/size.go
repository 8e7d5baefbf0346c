package component

// Size is an extent in cells. Map cells and the player are 1×1; the
// viewport's Size is its visible rectangle.
type Size struct {
	W, H int
}
