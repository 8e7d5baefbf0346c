package system

import (
	"context"

	"github.com/l1jgo/tileworld/internal/component"
	"github.com/l1jgo/tileworld/internal/core/ecs"
	coresys "github.com/l1jgo/tileworld/internal/core/system"
	"github.com/l1jgo/tileworld/internal/input"
	"github.com/l1jgo/tileworld/internal/world"
	"go.uber.org/zap"
)

// Expander rewrites a raw command line before it is stored (aliases, macros).
type Expander interface {
	Expand(line string) string
}

// InputSystem reads one command line per tick and overwrites the command
// buffer with it. Phase 0 (Input). The whole tick stalls on the read.
type InputSystem struct {
	source   input.Source
	expander Expander
	commands *world.CommandBuffer
	log      *zap.Logger
}

// NewInputSystem wires src into ws's command buffer. exp may be nil.
func NewInputSystem(ws *world.State, src input.Source, exp Expander, log *zap.Logger) *InputSystem {
	return &InputSystem{
		source:   src,
		expander: exp,
		commands: ws.Commands,
		log:      log,
	}
}

func (s *InputSystem) Name() string         { return "input-capture" }
func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }
func (s *InputSystem) Access() []ecs.Access { return []ecs.Access{ecs.Writes(component.KindCommandBuffer)} }

func (s *InputSystem) Update(ctx context.Context, tick uint64) error {
	line, err := s.source.ReadLine(ctx)
	if err != nil {
		return err
	}
	if s.expander != nil {
		if expanded := s.expander.Expand(line); expanded != line {
			s.log.Debug("command expanded",
				zap.Uint64("tick", tick),
				zap.String("line", line),
				zap.String("expanded", expanded),
			)
			line = expanded
		}
	}
	s.commands.Set(line)
	return nil
}
