package system

import (
	"context"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	coresys "github.com/l1jgo/tileworld/internal/core/system"
	"github.com/l1jgo/tileworld/internal/world"
)

// ViewFollowSystem moves the viewport after the player. Phase 3 (PostUpdate).
//
// Per axis: once the player is past half the view extent the view trails
// it by that half; before that the view's lower edge sits on the player.
// The upper edge is not clamped against the map.
type ViewFollowSystem struct {
	world *world.State
}

func NewViewFollowSystem(ws *world.State) *ViewFollowSystem {
	return &ViewFollowSystem{world: ws}
}

func (s *ViewFollowSystem) Name() string         { return "view-follow" }
func (s *ViewFollowSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ViewFollowSystem) Access() []ecs.Access {
	return []ecs.Access{
		ecs.Writes(component.KindPosition),
		ecs.Reads(component.KindSize),
		ecs.Reads(component.KindPlayerTag),
		ecs.Reads(component.KindViewTag),
	}
}

func (s *ViewFollowSystem) Update(_ context.Context, _ uint64) error {
	_, player, err := s.world.PlayerPosition()
	if err != nil {
		return err
	}
	_, view, size, err := s.world.ViewRect()
	if err != nil {
		return err
	}
	view.X = follow(player.X, size.W)
	view.Y = follow(player.Y, size.H)
	return nil
}

func follow(p, extent int) int {
	half := extent / 2
	if p > half {
		return p - half
	}
	return p
}
