package component

// Velocity is added to Position once per tick by the motion system.
type Velocity struct {
	DX, DY int
}
