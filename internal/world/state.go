package world

import (
	"fmt"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
)

// State is the simulation's world: the ECS world, one typed store per
// component kind, the pending-command resource, and the loaded map extents.
// Systems reach component data only through the stores named in their
// access lists.
type State struct {
	ECS *ecs.World

	Tiles      *ecs.Store[component.Tile]
	Positions  *ecs.Store[component.Position]
	Velocities *ecs.Store[component.Velocity]
	Sizes      *ecs.Store[component.Size]
	Players    *ecs.Store[component.PlayerTag]
	Views      *ecs.Store[component.ViewTag]
	Immovables *ecs.Store[component.ImmovableTag]
	NonPlayers *ecs.Store[component.NonPlayerTag]

	Commands *CommandBuffer

	MapWidth, MapHeight int
}

// NewState creates an empty world with every store registered.
func NewState() (*State, error) {
	w := ecs.NewWorld()
	s := &State{ECS: w, Commands: &CommandBuffer{}}

	var err error
	if s.Tiles, err = ecs.RegisterStore[component.Tile](w, component.KindTile, "Tile"); err != nil {
		return nil, err
	}
	if s.Positions, err = ecs.RegisterStore[component.Position](w, component.KindPosition, "Position"); err != nil {
		return nil, err
	}
	if s.Velocities, err = ecs.RegisterStore[component.Velocity](w, component.KindVelocity, "Velocity"); err != nil {
		return nil, err
	}
	if s.Sizes, err = ecs.RegisterStore[component.Size](w, component.KindSize, "Size"); err != nil {
		return nil, err
	}
	if s.Players, err = ecs.RegisterStore[component.PlayerTag](w, component.KindPlayerTag, "PlayerTag"); err != nil {
		return nil, err
	}
	if s.Views, err = ecs.RegisterStore[component.ViewTag](w, component.KindViewTag, "ViewTag"); err != nil {
		return nil, err
	}
	if s.Immovables, err = ecs.RegisterStore[component.ImmovableTag](w, component.KindImmovableTag, "ImmovableTag"); err != nil {
		return nil, err
	}
	if s.NonPlayers, err = ecs.RegisterStore[component.NonPlayerTag](w, component.KindNonPlayerTag, "NonPlayerTag"); err != nil {
		return nil, err
	}
	if err := w.Registry().Register(component.KindCommandBuffer, "CommandBuffer", s.Commands); err != nil {
		return nil, fmt.Errorf("register command buffer: %w", err)
	}
	return s, nil
}

// Registry is shorthand for the ECS registry that arbitrates borrows.
func (s *State) Registry() *ecs.Registry { return s.ECS.Registry() }

// Player returns the unique PlayerTag entity.
func (s *State) Player() (ecs.EntityID, error) {
	return unique(s.Players, InvariantSinglePlayer, "player")
}

// View returns the unique ViewTag entity.
func (s *State) View() (ecs.EntityID, error) {
	return unique(s.Views, InvariantSingleView, "viewport")
}

func unique[T any](tags *ecs.Store[T], invariant, role string) (ecs.EntityID, error) {
	ids := tags.IDs()
	if len(ids) != 1 {
		return ecs.NilEntity, &InvariantError{
			Invariant: invariant,
			Role:      role,
			Detail:    fmt.Sprintf("found %d tagged entities", len(ids)),
		}
	}
	return ids[0], nil
}

// PlayerPosition returns the player's Position, failing with an
// InvariantError when the player or its Position is missing.
func (s *State) PlayerPosition() (ecs.EntityID, *component.Position, error) {
	id, err := s.Player()
	if err != nil {
		return id, nil, err
	}
	pos, ok := s.Positions.Get(id)
	if !ok {
		return id, nil, Missing(InvariantPlayerShape, "player", "Position", id)
	}
	return id, pos, nil
}

// ViewRect returns the viewport's Position and Size.
func (s *State) ViewRect() (ecs.EntityID, *component.Position, *component.Size, error) {
	id, err := s.View()
	if err != nil {
		return id, nil, nil, err
	}
	pos, ok := s.Positions.Get(id)
	if !ok {
		return id, nil, nil, Missing(InvariantViewShape, "viewport", "Position", id)
	}
	size, ok := s.Sizes.Get(id)
	if !ok {
		return id, nil, nil, Missing(InvariantViewShape, "viewport", "Size", id)
	}
	return id, pos, size, nil
}
