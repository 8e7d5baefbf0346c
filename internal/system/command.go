package system

import (
	"context"

	"github.com/l1jgo/tileworld/internal/command"
	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	coresys "github.com/l1jgo/tileworld/internal/core/system"
	"github.com/l1jgo/tileworld/internal/world"
	"go.uber.org/zap"
)

// CommandApplySystem parses the pending command and adds the resulting
// intent to the player's velocity. Velocity is never reset here, so
// repeated commands compound. Phase 1 (PreUpdate).
type CommandApplySystem struct {
	world *world.State
	log   *zap.Logger
}

func NewCommandApplySystem(ws *world.State, log *zap.Logger) *CommandApplySystem {
	return &CommandApplySystem{world: ws, log: log}
}

func (s *CommandApplySystem) Name() string         { return "command-apply" }
func (s *CommandApplySystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *CommandApplySystem) Access() []ecs.Access {
	return []ecs.Access{
		ecs.Reads(component.KindCommandBuffer),
		ecs.Reads(component.KindPlayerTag),
		ecs.Writes(component.KindVelocity),
	}
}

func (s *CommandApplySystem) Update(_ context.Context, tick uint64) error {
	intent := command.Parse(s.world.Commands.Line())
	for _, id := range s.world.Players.IDs() {
		vel, ok := s.world.Velocities.Get(id)
		if !ok {
			return world.Missing(world.InvariantPlayerShape, "player", "Velocity", id)
		}
		if intent.IsZero() {
			continue
		}
		vel.DX += intent.DX
		vel.DY += intent.DY
		s.log.Debug("velocity changed",
			zap.Uint64("tick", tick),
			zap.Int("dx", vel.DX),
			zap.Int("dy", vel.DY),
		)
	}
	return nil
}
