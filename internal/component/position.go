package component

// Position is an absolute map coordinate; y grows downward (row index).
type Position struct {
	X, Y int
}
