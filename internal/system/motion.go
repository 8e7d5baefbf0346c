package system

import (
	"context"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	coresys "github.com/l1jgo/tileworld/internal/core/system"
	"github.com/l1jgo/tileworld/internal/world"
)

// MotionSystem adds Velocity to Position for every entity carrying both.
// Positions are not clamped to the map. Phase 2 (Update).
type MotionSystem struct {
	world   *world.State
	workers int
}

// NewMotionSystem splits the integration over at most workers goroutines.
func NewMotionSystem(ws *world.State, workers int) *MotionSystem {
	return &MotionSystem{world: ws, workers: max(workers, 1)}
}

func (s *MotionSystem) Name() string         { return "motion" }
func (s *MotionSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MotionSystem) Access() []ecs.Access {
	return []ecs.Access{
		ecs.Writes(component.KindPosition),
		ecs.Reads(component.KindVelocity),
	}
}

func (s *MotionSystem) Update(ctx context.Context, _ uint64) error {
	return ecs.ParallelEach2(ctx, s.workers, s.world.Positions, s.world.Velocities,
		func(_ ecs.EntityID, p *component.Position, v *component.Velocity) {
			p.X += v.DX
			p.Y += v.DY
		})
}
