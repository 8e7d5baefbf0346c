package world

import (
	"fmt"

	"github.com/l1jgo/tileworld/internal/core/ecs"
)

// World invariants. A violation aborts the tick loop.
const (
	InvariantSinglePlayer = "exactly one PlayerTag entity"
	InvariantSingleView   = "exactly one ViewTag entity"
	InvariantPlayerShape  = "player carries Tile, Position, Velocity, Size"
	InvariantViewShape    = "viewport carries Position, Size"
	InvariantCellBounds   = "map cells lie inside the loaded map"
)

// InvariantError reports a broken world invariant.
type InvariantError struct {
	Invariant string
	Role      string       // "player", "viewport", "map cell", ...
	Component string       // missing component, if any
	Entity    ecs.EntityID // offending entity, if known
	Detail    string
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("invariant %q violated: %s", e.Invariant, e.Role)
	if e.Entity != ecs.NilEntity {
		msg += fmt.Sprintf(" (entity %d)", e.Entity)
	}
	if e.Component != "" {
		msg += " missing " + e.Component
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Missing builds the error for an entity lacking a required component.
func Missing(invariant, role, comp string, id ecs.EntityID) *InvariantError {
	return &InvariantError{Invariant: invariant, Role: role, Component: comp, Entity: id}
}
