package data

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ActorSpawn places one non-player actor on the map.
type ActorSpawn struct {
	Glyph rune
	X, Y  int
}

// WorldMap is a rectangular grid of single-glyph cells plus the glyph
// classification sets carried by the map file.
type WorldMap struct {
	Width, Height int
	Cells         []rune // row-major: Cells[y*Width+x]

	Playable    []rune
	Blocking    []rune
	NonBlocking []rune

	Actors []ActorSpawn
}

type actorEntry struct {
	Glyph string `yaml:"glyph"`
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
}

type mapFile struct {
	Width       *int         `yaml:"width"`
	Height      *int         `yaml:"height"`
	WorldMap    []string     `yaml:"world_map"`
	Playable    []string     `yaml:"playable"`
	Blocking    []string     `yaml:"blocking"`
	NonBlocking []string     `yaml:"nonblocking"`
	Actors      []actorEntry `yaml:"actors"`
}

// defaultWidth applies when width is missing and every world_map entry is
// a single glyph.
const defaultWidth = 3

// Defaults used for keys missing from a map file.
var (
	defaultRows        = []string{"TTT", "T.T", "TTT"}
	defaultPlayable    = []rune{'X'}
	defaultBlocking    = []rune{'T'}
	defaultNonBlocking = []rune{'.'}
)

// LoadWorldMap reads and parses a YAML map file.
func LoadWorldMap(path string) (*WorldMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	m, err := ParseWorldMap(raw)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	return m, nil
}

// ParseWorldMap parses YAML map data. world_map entries are concatenated
// into cells, so an entry may hold one glyph or a whole row. A missing width
// is 3 when every entry is one glyph, else the first entry's length; a
// missing height is the cell count divided by the width.
func ParseWorldMap(raw []byte) (*WorldMap, error) {
	var file mapFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}

	rows := file.WorldMap
	if len(rows) == 0 {
		rows = defaultRows
		if file.Width == nil && file.Height == nil {
			w, h := 3, 3
			file.Width, file.Height = &w, &h
		}
	}

	var cells []rune
	for _, row := range rows {
		cells = append(cells, glyphs(row)...)
	}

	width, height := 0, 0
	switch {
	case file.Width != nil:
		width = *file.Width
	case singleGlyphs(rows):
		width = defaultWidth
	default:
		width = len(glyphs(rows[0]))
	}
	if file.Height != nil {
		height = *file.Height
	} else if width > 0 {
		height = len(cells) / width
	}

	m, err := newWorldMap(width, height, cells)
	if err != nil {
		return nil, err
	}
	m.Playable = glyphSet(file.Playable, defaultPlayable)
	m.Blocking = glyphSet(file.Blocking, defaultBlocking)
	m.NonBlocking = glyphSet(file.NonBlocking, defaultNonBlocking)

	for i, a := range file.Actors {
		g := glyphs(a.Glyph)
		if len(g) != 1 {
			return nil, fmt.Errorf("actor %d: glyph %q must be exactly one character", i, a.Glyph)
		}
		if !m.InBounds(a.X, a.Y) {
			return nil, fmt.Errorf("actor %d: position (%d,%d) outside %dx%d map", i, a.X, a.Y, m.Width, m.Height)
		}
		m.Actors = append(m.Actors, ActorSpawn{Glyph: g[0], X: a.X, Y: a.Y})
	}
	return m, nil
}

// FromRows builds a map from equal-length row strings with the default
// glyph classification.
func FromRows(rows ...string) (*WorldMap, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("map has no rows")
	}
	width := len(glyphs(rows[0]))
	var cells []rune
	for y, row := range rows {
		g := glyphs(row)
		if len(g) != width {
			return nil, fmt.Errorf("row %d has %d cells, want %d", y, len(g), width)
		}
		cells = append(cells, g...)
	}
	m, err := newWorldMap(width, len(rows), cells)
	if err != nil {
		return nil, err
	}
	m.Playable = defaultPlayable
	m.Blocking = defaultBlocking
	m.NonBlocking = defaultNonBlocking
	return m, nil
}

func newWorldMap(width, height int, cells []rune) (*WorldMap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid map size %dx%d", width, height)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("map has %d cells, want %d (%dx%d)", len(cells), width*height, width, height)
	}
	return &WorldMap{Width: width, Height: height, Cells: cells}, nil
}

func singleGlyphs(rows []string) bool {
	for _, row := range rows {
		if len(glyphs(row)) != 1 {
			return false
		}
	}
	return true
}

// glyphs splits s into cells after NFC normalization, so a base character
// followed by a combining mark occupies one cell.
func glyphs(s string) []rune {
	return []rune(norm.NFC.String(s))
}

func glyphSet(entries []string, fallback []rune) []rune {
	if len(entries) == 0 {
		return fallback
	}
	var out []rune
	for _, e := range entries {
		out = append(out, glyphs(e)...)
	}
	return out
}

// InBounds reports whether (x, y) is within the map boundaries.
func (m *WorldMap) InBounds(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// At returns the glyph at (x, y). Panics if out of bounds.
func (m *WorldMap) At(x, y int) rune {
	return m.Cells[y*m.Width+x]
}

// Rows renders the map back to row strings.
func (m *WorldMap) Rows() []string {
	rows := make([]string, m.Height)
	for y := range m.Height {
		rows[y] = string(m.Cells[y*m.Width : (y+1)*m.Width])
	}
	return rows
}

// PlayerGlyph is the glyph the player is drawn with: the first playable glyph.
func (m *WorldMap) PlayerGlyph() rune {
	if len(m.Playable) == 0 {
		return defaultPlayable[0]
	}
	return m.Playable[0]
}

// Classification summarizes the glyph sets for logging.
func (m *WorldMap) Classification() string {
	return fmt.Sprintf("playable=%q blocking=%q nonblocking=%q",
		string(m.Playable), string(m.Blocking), string(m.NonBlocking))
}

// String renders the map rows joined by newlines.
func (m *WorldMap) String() string {
	return strings.Join(m.Rows(), "\n")
}
