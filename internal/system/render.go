package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	coresys "github.com/l1jgo/tileworld/internal/core/system"
	"github.com/l1jgo/tileworld/internal/render"
	"github.com/l1jgo/tileworld/internal/world"
)

// RenderSystem composes the viewport frame and presents it to the sink.
// Phase 4 (Output). Read-only on every kind.
type RenderSystem struct {
	world *world.State
	sink  render.Sink

	mu       sync.Mutex
	last     render.Frame
	lastTick uint64
}

func NewRenderSystem(ws *world.State, sink render.Sink) *RenderSystem {
	return &RenderSystem{world: ws, sink: sink}
}

func (s *RenderSystem) Name() string         { return "render" }
func (s *RenderSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *RenderSystem) Access() []ecs.Access {
	return []ecs.Access{
		ecs.Reads(component.KindTile),
		ecs.Reads(component.KindPosition),
		ecs.Reads(component.KindSize),
		ecs.Reads(component.KindPlayerTag),
		ecs.Reads(component.KindViewTag),
		ecs.Reads(component.KindImmovableTag),
		ecs.Reads(component.KindNonPlayerTag),
	}
}

func (s *RenderSystem) Update(_ context.Context, tick uint64) error {
	return s.draw(tick)
}

// Draw composes and presents a frame outside the tick loop; the process
// uses it to show the world before the first command.
func (s *RenderSystem) Draw() error {
	return s.draw(0)
}

func (s *RenderSystem) draw(tick uint64) error {
	f, err := render.Compose(s.world)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.last, s.lastTick = f, tick
	s.mu.Unlock()
	if err := s.sink.Present(f); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}
	return nil
}

// LastFrame returns the most recently composed frame.
func (s *RenderSystem) LastFrame() render.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Snapshot returns the last frame and the tick it was drawn on (0 for the
// frame drawn before the first tick). Safe to call from other goroutines.
func (s *RenderSystem) Snapshot() (uint64, render.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick, s.last
}
