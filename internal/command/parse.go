// Package command turns one line of player text into a movement intent.
package command

import (
	"strconv"
	"strings"
)

// Intent is the movement accumulated from one command line. Screen
// convention: x grows rightward, y grows downward, so "up" decrements DY.
type Intent struct {
	DX, DY int
}

// IsZero reports whether the intent moves nothing.
func (i Intent) IsZero() bool { return i.DX == 0 && i.DY == 0 }

type axis struct {
	dx, dy int
}

// verbs maps each recognized token (case-sensitive) to its unit direction.
var verbs = map[string]axis{
	"left": {-1, 0}, "l": {-1, 0},
	"right": {1, 0}, "r": {1, 0},
	"up": {0, -1}, "u": {0, -1},
	"down": {0, 1}, "d": {0, 1},
}

// Parse splits line on whitespace and accumulates every verb front to back.
// The token after a verb is always consumed as its magnitude; when it is
// missing or not an integer the magnitude is 1. Unrecognized tokens are
// ignored.
func Parse(line string) Intent {
	var in Intent
	tokens := strings.Fields(line)
	for i := 0; i < len(tokens); i++ {
		dir, ok := verbs[tokens[i]]
		if !ok {
			continue
		}
		n := 1
		if i+1 < len(tokens) {
			i++
			if v, err := strconv.Atoi(tokens[i]); err == nil {
				n = v
			}
		}
		in.DX += dir.dx * n
		in.DY += dir.dy * n
	}
	return in
}
