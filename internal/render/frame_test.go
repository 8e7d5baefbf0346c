package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	"github.com/l1jgo/tileworld/internal/data"
	"github.com/l1jgo/tileworld/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareWorld has only a viewport; callers add whatever else they need.
func bareWorld(t *testing.T, vx, vy, vw, vh int) *world.State {
	t.Helper()
	s, err := world.NewState()
	require.NoError(t, err)
	view := s.ECS.CreateEntity()
	s.Positions.Set(view, component.Position{X: vx, Y: vy})
	s.Sizes.Set(view, component.Size{W: vw, H: vh})
	s.Views.Set(view, component.ViewTag{})
	return s
}

func addCell(s *world.State, glyph rune, x, y int) ecs.EntityID {
	id := s.ECS.CreateEntity()
	s.Tiles.Set(id, component.Tile{Glyph: glyph})
	s.Positions.Set(id, component.Position{X: x, Y: y})
	s.Immovables.Set(id, component.ImmovableTag{})
	return id
}

func TestComposeSingleTile(t *testing.T) {
	s := bareWorld(t, 0, 0, 10, 10)
	addCell(s, 'T', 0, 0)

	f, err := Compose(s)
	require.NoError(t, err)
	require.Len(t, f.Rows, 10)
	assert.Equal(t, 10, f.Width)
	assert.Equal(t, 10, f.Height)
	assert.Equal(t, "T"+strings.Repeat(" ", 9), f.Rows[0])
	for _, row := range f.Rows[1:] {
		assert.Equal(t, strings.Repeat(" ", 10), row)
	}
}

func TestComposeLayersAndClipping(t *testing.T) {
	s := bareWorld(t, 2, 1, 3, 2)
	for y := range 4 {
		for x := range 6 {
			addCell(s, '.', x, y)
		}
	}
	actor := func(g rune, x, y int) {
		id := s.ECS.CreateEntity()
		s.Tiles.Set(id, component.Tile{Glyph: g})
		s.Positions.Set(id, component.Position{X: x, Y: y})
		s.NonPlayers.Set(id, component.NonPlayerTag{})
	}
	actor('g', 3, 1) // inside
	actor('r', 0, 0) // clipped
	actor('o', 4, 2) // under the player

	player := s.ECS.CreateEntity()
	s.Tiles.Set(player, component.Tile{Glyph: '@'})
	s.Positions.Set(player, component.Position{X: 4, Y: 2})
	s.Players.Set(player, component.PlayerTag{})

	f, err := Compose(s)
	require.NoError(t, err)
	assert.Equal(t, []string{".g.", "..@"}, f.Rows)
	assert.Equal(t, component.Position{X: 2, Y: 1}, f.Origin)
}

func TestComposePastMapEdgeIsBlank(t *testing.T) {
	s := bareWorld(t, 1, 1, 3, 3)
	for y := range 2 {
		for x := range 2 {
			addCell(s, 'T', x, y)
		}
	}
	f, err := Compose(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"T  ", "   ", "   "}, f.Rows)
}

func TestComposeWithoutViewport(t *testing.T) {
	s, err := world.NewState()
	require.NoError(t, err)
	_, err = Compose(s)
	var ie *world.InvariantError
	assert.ErrorAs(t, err, &ie)
}

func TestComposeBuiltWorld(t *testing.T) {
	m, err := data.FromRows("TTT", "T.T", "TTT")
	require.NoError(t, err)
	s, err := world.Build(m, world.Options{ViewWidth: 3, ViewHeight: 3, PlayerX: 1, PlayerY: 1})
	require.NoError(t, err)

	f, err := Compose(s)
	require.NoError(t, err)
	assert.Equal(t, "TTT\nTXT\nTTT", f.String())
}

func TestFrameColumns(t *testing.T) {
	f := Frame{Rows: []string{"ab", "日本", "x"}}
	assert.Equal(t, 4, f.Columns())
	assert.Equal(t, 0, Frame{}.Columns())
}

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf)
	require.NoError(t, sink.Present(Frame{Rows: []string{"T.", ".T"}}))
	require.NoError(t, sink.Present(Frame{Rows: []string{"@"}}))
	assert.Equal(t, "T.\n.T\n\n@\n\n", buf.String())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.Present(Frame{Rows: []string{"a"}}))
	require.NoError(t, r.Present(Frame{Rows: []string{"b"}}))
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, last.Rows)

	frames := r.Frames()
	require.Len(t, frames, 2)
	frames[0] = Frame{}
	assert.Equal(t, []string{"a"}, r.Frames()[0].Rows, "Frames returns a copy")
}
