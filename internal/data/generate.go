package data

import (
	"fmt"

	"github.com/ojrac/opensimplex-go"
)

// GenerateOptions shapes a procedurally generated map.
type GenerateOptions struct {
	Width, Height int
	Seed          int64
	Scale         float64 // noise sampling step per cell; <= 0 uses 0.15
	Threshold     float64 // noise above this becomes blocking terrain
}

// Generate builds a map from 2D simplex noise: a blocking border, blocking
// clumps where the noise exceeds Threshold and open ground elsewhere.
// The same options always produce the same map.
func Generate(opts GenerateOptions) (*WorldMap, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid map size %dx%d", opts.Width, opts.Height)
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 0.15
	}
	wall, ground := defaultBlocking[0], defaultNonBlocking[0]

	noise := opensimplex.New(opts.Seed)
	cells := make([]rune, 0, opts.Width*opts.Height)
	for y := range opts.Height {
		for x := range opts.Width {
			edge := x == 0 || y == 0 || x == opts.Width-1 || y == opts.Height-1
			switch {
			case edge:
				cells = append(cells, wall)
			case noise.Eval2(float64(x)*scale, float64(y)*scale) > opts.Threshold:
				cells = append(cells, wall)
			default:
				cells = append(cells, ground)
			}
		}
	}

	m, err := newWorldMap(opts.Width, opts.Height, cells)
	if err != nil {
		return nil, err
	}
	m.Playable = defaultPlayable
	m.Blocking = defaultBlocking
	m.NonBlocking = defaultNonBlocking
	return m, nil
}
