package world

import (
	"errors"
	"testing"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMap(t *testing.T, rows ...string) *data.WorldMap {
	t.Helper()
	m, err := data.FromRows(rows...)
	require.NoError(t, err)
	return m
}

func TestBuild(t *testing.T) {
	m := mustMap(t, "TTT", "T.T", "TTT")
	m.Actors = []data.ActorSpawn{{Glyph: 'g', X: 1, Y: 1}}

	s, err := Build(m, Options{ViewWidth: 4, ViewHeight: 2, PlayerX: 1, PlayerY: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, s.MapWidth)
	assert.Equal(t, 3, s.MapHeight)
	assert.Equal(t, 9, s.Immovables.Len())
	assert.Equal(t, 1, s.NonPlayers.Len())
	assert.Equal(t, "", s.Commands.Line())

	player, pos, err := s.PlayerPosition()
	require.NoError(t, err)
	assert.Equal(t, component.Position{X: 1, Y: 1}, *pos)
	tile, ok := s.Tiles.Get(player)
	require.True(t, ok)
	assert.Equal(t, 'X', tile.Glyph)
	vel, ok := s.Velocities.Get(player)
	require.True(t, ok)
	assert.Equal(t, component.Velocity{}, *vel)

	_, vpos, vsize, err := s.ViewRect()
	require.NoError(t, err)
	assert.Equal(t, component.Position{}, *vpos)
	assert.Equal(t, component.Size{W: 4, H: 2}, *vsize)

	for _, id := range s.Immovables.IDs() {
		p, ok := s.Positions.Get(id)
		require.True(t, ok)
		tl, ok := s.Tiles.Get(id)
		require.True(t, ok)
		assert.Equal(t, m.At(p.X, p.Y), tl.Glyph)
	}
}

func TestBuildPlayerGlyphOverride(t *testing.T) {
	s, err := Build(mustMap(t, ".."), Options{ViewWidth: 1, ViewHeight: 1, PlayerGlyph: '@'})
	require.NoError(t, err)
	id, err := s.Player()
	require.NoError(t, err)
	tile, _ := s.Tiles.Get(id)
	assert.Equal(t, '@', tile.Glyph)
}

func TestBuildRejectsViewSize(t *testing.T) {
	_, err := Build(mustMap(t, "."), Options{ViewWidth: 0, ViewHeight: 3})
	assert.Error(t, err)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 10, opts.ViewWidth)
	assert.Equal(t, 10, opts.ViewHeight)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		breakIt   func(s *State)
		invariant string
		component string
	}{
		{
			name: "second player",
			breakIt: func(s *State) {
				s.Players.Set(s.ECS.CreateEntity(), component.PlayerTag{})
			},
			invariant: InvariantSinglePlayer,
		},
		{
			name: "no player",
			breakIt: func(s *State) {
				id, _ := s.Player()
				s.Players.Remove(id)
			},
			invariant: InvariantSinglePlayer,
		},
		{
			name: "player without velocity",
			breakIt: func(s *State) {
				id, _ := s.Player()
				s.Velocities.Remove(id)
			},
			invariant: InvariantPlayerShape,
			component: "Velocity",
		},
		{
			name: "viewport without size",
			breakIt: func(s *State) {
				id, _ := s.View()
				s.Sizes.Remove(id)
			},
			invariant: InvariantViewShape,
			component: "Size",
		},
		{
			name: "second viewport",
			breakIt: func(s *State) {
				s.Views.Set(s.ECS.CreateEntity(), component.ViewTag{})
			},
			invariant: InvariantSingleView,
		},
		{
			name: "cell outside map",
			breakIt: func(s *State) {
				id := s.Immovables.IDs()[0]
				p, _ := s.Positions.Get(id)
				p.X = 99
			},
			invariant: InvariantCellBounds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(mustMap(t, "..", ".."), DefaultOptions())
			require.NoError(t, err)
			require.NoError(t, s.Validate())

			tt.breakIt(s)
			err = s.Validate()
			var ie *InvariantError
			require.True(t, errors.As(err, &ie), "got %v", err)
			assert.Equal(t, tt.invariant, ie.Invariant)
			assert.Equal(t, tt.component, ie.Component)
		})
	}
}

func TestInvariantErrorMessage(t *testing.T) {
	err := Missing(InvariantViewShape, "viewport", "Size", 7)
	assert.Equal(t, `invariant "viewport carries Position, Size" violated: viewport (entity 7) missing Size`, err.Error())

	err = &InvariantError{Invariant: InvariantSinglePlayer, Role: "player", Detail: "found 0 tagged entities"}
	assert.Equal(t, `invariant "exactly one PlayerTag entity" violated: player: found 0 tagged entities`, err.Error())
}

func TestCommandBuffer(t *testing.T) {
	var b CommandBuffer
	assert.Equal(t, "", b.Line())
	b.Set("right 2")
	assert.Equal(t, "right 2", b.Line())
	b.Set("")
	assert.Equal(t, "", b.Line())
}
