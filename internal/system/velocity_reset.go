package system

import (
	"context"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	coresys "github.com/l1jgo/tileworld/internal/core/system"
	"github.com/l1jgo/tileworld/internal/world"
)

// VelocityResetSystem zeroes the player's velocity after motion, turning
// the accumulate-forever default into one step per command. Registered only
// when world.reset_velocity is set. Phase 3 (PostUpdate), alongside
// ViewFollow: the two touch disjoint kinds.
type VelocityResetSystem struct {
	world *world.State
}

func NewVelocityResetSystem(ws *world.State) *VelocityResetSystem {
	return &VelocityResetSystem{world: ws}
}

func (s *VelocityResetSystem) Name() string         { return "velocity-reset" }
func (s *VelocityResetSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *VelocityResetSystem) Access() []ecs.Access {
	return []ecs.Access{
		ecs.Writes(component.KindVelocity),
		ecs.Reads(component.KindPlayerTag),
	}
}

func (s *VelocityResetSystem) Update(_ context.Context, _ uint64) error {
	ecs.Each2(s.world.Players, s.world.Velocities, func(_ ecs.EntityID, _ *component.PlayerTag, v *component.Velocity) {
		*v = component.Velocity{}
	})
	return nil
}
