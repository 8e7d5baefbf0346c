package system

import (
	"context"
	"time"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	coresys "github.com/l1jgo/tileworld/internal/core/system"
	"github.com/l1jgo/tileworld/internal/persist"
	"github.com/l1jgo/tileworld/internal/world"
	"go.uber.org/zap"
)

// JournalWriter stores a batch of tick records.
type JournalWriter interface {
	WriteTicks(ctx context.Context, records []persist.TickRecord) error
}

// JournalSystem records every tick's command and resulting player/view
// state, flushing every interval ticks. Phase 5 (Persist). A failed flush
// is logged and the batch dropped; the simulation never stops for it.
type JournalSystem struct {
	world    *world.State
	writer   JournalWriter
	interval int
	timeout  time.Duration
	pending  []persist.TickRecord
	log      *zap.Logger
	now      func() time.Time
}

func NewJournalSystem(ws *world.State, writer JournalWriter, intervalTicks int, log *zap.Logger) *JournalSystem {
	return &JournalSystem{
		world:    ws,
		writer:   writer,
		interval: max(intervalTicks, 1),
		timeout:  5 * time.Second,
		pending:  make([]persist.TickRecord, 0, max(intervalTicks, 1)),
		log:      log,
		now:      time.Now,
	}
}

func (s *JournalSystem) Name() string         { return "journal" }
func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Access() []ecs.Access {
	return []ecs.Access{
		ecs.Reads(component.KindCommandBuffer),
		ecs.Reads(component.KindPosition),
		ecs.Reads(component.KindVelocity),
		ecs.Reads(component.KindSize),
		ecs.Reads(component.KindPlayerTag),
		ecs.Reads(component.KindViewTag),
	}
}

func (s *JournalSystem) Update(ctx context.Context, tick uint64) error {
	id, pos, err := s.world.PlayerPosition()
	if err != nil {
		return err
	}
	vel, ok := s.world.Velocities.Get(id)
	if !ok {
		return world.Missing(world.InvariantPlayerShape, "player", "Velocity", id)
	}
	_, view, _, err := s.world.ViewRect()
	if err != nil {
		return err
	}

	s.pending = append(s.pending, persist.TickRecord{
		Tick:       tick,
		Command:    s.world.Commands.Line(),
		PlayerX:    pos.X,
		PlayerY:    pos.Y,
		VelocityDX: vel.DX,
		VelocityDY: vel.DY,
		ViewX:      view.X,
		ViewY:      view.Y,
		RecordedAt: s.now(),
	})
	if len(s.pending) >= s.interval {
		s.flush(ctx)
	}
	return nil
}

// Close writes any records still pending. Called once at shutdown.
func (s *JournalSystem) Close(ctx context.Context) {
	s.flush(ctx)
}

func (s *JournalSystem) flush(ctx context.Context) {
	if len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.writer.WriteTicks(ctx, s.pending); err != nil {
		s.log.Warn("journal flush failed",
			zap.Int("records", len(s.pending)),
			zap.Uint64("last_tick", s.pending[len(s.pending)-1].Tick),
			zap.Error(err),
		)
	} else {
		s.log.Debug("journal flushed", zap.Int("records", len(s.pending)))
	}
	s.pending = s.pending[:0]
}
