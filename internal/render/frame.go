// Package render composes the viewport into a character frame and hands
// it to a sink chosen by the caller.
package render

import (
	"strings"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	"github.com/l1jgo/tileworld/internal/world"
	"github.com/mattn/go-runewidth"
)

// Blank is drawn where no layer put a glyph.
const Blank = ' '

// Frame is one rendered view: Height rows of exactly Width glyphs each.
// Origin is the absolute map coordinate of row 0, column 0.
type Frame struct {
	Rows          []string
	Width, Height int
	Origin        component.Position
}

// String joins the rows with newlines.
func (f Frame) String() string {
	return strings.Join(f.Rows, "\n")
}

// Columns is the widest row measured in terminal columns.
func (f Frame) Columns() int {
	cols := 0
	for _, r := range f.Rows {
		cols = max(cols, runewidth.StringWidth(r))
	}
	return cols
}

// Compose renders the viewport of s. The frame is sized to the viewport and
// every layer is translated to viewport-relative coordinates and clipped to
// it. Layers, later overwriting earlier: map cells, non-player actors, player.
func Compose(s *world.State) (Frame, error) {
	_, vpos, vsize, err := s.ViewRect()
	if err != nil {
		return Frame{}, err
	}
	w, h := max(vsize.W, 0), max(vsize.H, 0)
	grid := make([][]rune, h)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(string(Blank), w))
	}

	put := func(tile *component.Tile, pos *component.Position) {
		x, y := pos.X-vpos.X, pos.Y-vpos.Y
		if x < 0 || x >= w || y < 0 || y >= h {
			return
		}
		grid[y][x] = tile.Glyph
	}

	ecs.Each3(s.Tiles, s.Positions, s.Immovables, func(_ ecs.EntityID, t *component.Tile, p *component.Position, _ *component.ImmovableTag) {
		put(t, p)
	})
	ecs.Each3(s.Tiles, s.Positions, s.NonPlayers, func(_ ecs.EntityID, t *component.Tile, p *component.Position, _ *component.NonPlayerTag) {
		put(t, p)
	})
	ecs.Each3(s.Tiles, s.Positions, s.Players, func(_ ecs.EntityID, t *component.Tile, p *component.Position, _ *component.PlayerTag) {
		put(t, p)
	})

	rows := make([]string, h)
	for y := range grid {
		rows[y] = string(grid[y])
	}
	return Frame{Rows: rows, Width: w, Height: h, Origin: *vpos}, nil
}
