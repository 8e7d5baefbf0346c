package world

import (
	"fmt"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/data"
)

// Options controls the entities created alongside the map.
type Options struct {
	ViewWidth, ViewHeight int
	PlayerX, PlayerY      int
	PlayerGlyph           rune // 0 → the map's first playable glyph
}

// DefaultOptions is a 10x10 view with the player at the origin.
func DefaultOptions() Options {
	return Options{ViewWidth: 10, ViewHeight: 10}
}

// Build creates the world for m: the player, the viewport, one immovable
// entity per map cell and the map's non-player actors. The command buffer
// starts empty.
func Build(m *data.WorldMap, opts Options) (*State, error) {
	if opts.ViewWidth <= 0 || opts.ViewHeight <= 0 {
		return nil, fmt.Errorf("invalid view size %dx%d", opts.ViewWidth, opts.ViewHeight)
	}
	s, err := NewState()
	if err != nil {
		return nil, err
	}
	s.MapWidth, s.MapHeight = m.Width, m.Height

	glyph := opts.PlayerGlyph
	if glyph == 0 {
		glyph = m.PlayerGlyph()
	}
	player := s.ECS.CreateEntity()
	s.Tiles.Set(player, component.Tile{Glyph: glyph})
	s.Velocities.Set(player, component.Velocity{})
	s.Positions.Set(player, component.Position{X: opts.PlayerX, Y: opts.PlayerY})
	s.Players.Set(player, component.PlayerTag{})
	s.Sizes.Set(player, component.Size{W: 1, H: 1})

	view := s.ECS.CreateEntity()
	s.Positions.Set(view, component.Position{})
	s.Sizes.Set(view, component.Size{W: opts.ViewWidth, H: opts.ViewHeight})
	s.Views.Set(view, component.ViewTag{})

	for i, c := range m.Cells {
		cell := s.ECS.CreateEntity()
		s.Immovables.Set(cell, component.ImmovableTag{})
		s.Sizes.Set(cell, component.Size{W: 1, H: 1})
		s.Positions.Set(cell, component.Position{X: i % m.Width, Y: i / m.Width})
		s.Tiles.Set(cell, component.Tile{Glyph: c})
	}

	for _, a := range m.Actors {
		actor := s.ECS.CreateEntity()
		s.Tiles.Set(actor, component.Tile{Glyph: a.Glyph})
		s.Positions.Set(actor, component.Position{X: a.X, Y: a.Y})
		s.NonPlayers.Set(actor, component.NonPlayerTag{})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the structural invariants of a freshly built or running world.
func (s *State) Validate() error {
	player, err := s.Player()
	if err != nil {
		return err
	}
	for _, c := range []struct {
		name string
		has  bool
	}{
		{"Tile", s.Tiles.Has(player)},
		{"Position", s.Positions.Has(player)},
		{"Velocity", s.Velocities.Has(player)},
		{"Size", s.Sizes.Has(player)},
	} {
		if !c.has {
			return Missing(InvariantPlayerShape, "player", c.name, player)
		}
	}
	if _, _, _, err := s.ViewRect(); err != nil {
		return err
	}
	for _, id := range s.Immovables.IDs() {
		pos, ok := s.Positions.Get(id)
		if !ok {
			return Missing(InvariantCellBounds, "map cell", "Position", id)
		}
		if pos.X < 0 || pos.X >= s.MapWidth || pos.Y < 0 || pos.Y >= s.MapHeight {
			return &InvariantError{
				Invariant: InvariantCellBounds,
				Role:      "map cell",
				Entity:    id,
				Detail:    fmt.Sprintf("(%d,%d) outside %dx%d", pos.X, pos.Y, s.MapWidth, s.MapHeight),
			}
		}
	}
	return nil
}
