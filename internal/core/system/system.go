package system

import (
	"context"

	"github.com/l1jgo/tileworld/internal/core/ecs"
)

// Phase defines execution ordering within a single tick. Each phase is a
// stage: its systems may run concurrently, and a barrier separates it from
// the next phase.
type Phase int

const (
	PhaseInput      Phase = iota // 0: read one command line
	PhasePreUpdate               // 1: parse & apply the command
	PhaseUpdate                  // 2: integrate motion
	PhasePostUpdate              // 3: viewport follow, velocity reset
	PhaseOutput                  // 4: compose + present the frame
	PhasePersist                 // 5: journal flush
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	default:
		return "unknown"
	}
}

// System is the interface every ECS system implements. Access is the
// system's capability list; it is checked once when the Runner is built and
// enforced through registry borrows every tick.
type System interface {
	Name() string
	Phase() Phase
	Access() []ecs.Access
	Update(ctx context.Context, tick uint64) error
}
