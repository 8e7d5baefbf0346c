package component

// PlayerTag marks the player-controlled entity.
type PlayerTag struct{}

// ViewTag marks the viewport entity.
type ViewTag struct{}

// ImmovableTag marks a map cell. Map cells are never mutated after creation.
type ImmovableTag struct{}

// NonPlayerTag marks an actor that is rendered but not driven by any system.
type NonPlayerTag struct{}
