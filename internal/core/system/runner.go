package system

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/l1jgo/tileworld/internal/core/ecs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAccessConflict is returned by Build when two systems of one phase
// request incompatible access to the same kind.
var ErrAccessConflict = errors.New("access conflict")

// ErrNotBuilt is returned by Tick when Build has not succeeded yet.
var ErrNotBuilt = errors.New("runner not built")

// Runner executes systems stage by stage each tick.
type Runner struct {
	registry *ecs.Registry
	systems  []System
	stages   [][]System
	built    bool
	tick     uint64
	log      *zap.Logger
}

func NewRunner(registry *ecs.Registry, log *zap.Logger) *Runner {
	return &Runner{
		registry: registry,
		systems:  make([]System, 0, 8),
		log:      log,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.built = false
}

// Build groups systems into stages and rejects any stage in which two
// systems both write a kind, or one writes what another reads.
func (r *Runner) Build() error {
	sorted := make([]System, len(r.systems))
	copy(sorted, r.systems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Phase() < sorted[j].Phase()
	})

	var stages [][]System
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].Phase() == sorted[i].Phase() {
			j++
		}
		if err := r.checkStage(sorted[i:j]); err != nil {
			return err
		}
		stages = append(stages, sorted[i:j])
		i = j
	}

	r.stages = stages
	r.built = true
	return nil
}

func (r *Runner) checkStage(stage []System) error {
	type holder struct {
		idx  int // position in stage; names need not be unique
		name string
		mode ecs.Mode
	}
	seen := make(map[ecs.Kind][]holder)
	for i, s := range stage {
		for _, a := range s.Access() {
			for _, h := range seen[a.Kind] {
				if h.idx == i {
					continue
				}
				if h.mode == ecs.Write || a.Mode == ecs.Write {
					return fmt.Errorf("%w: phase %s: %s (%s) and %s (%s) on %s",
						ErrAccessConflict, s.Phase(), h.name, h.mode, s.Name(), a.Mode,
						r.registry.Name(a.Kind))
				}
			}
			seen[a.Kind] = append(seen[a.Kind], holder{idx: i, name: s.Name(), mode: a.Mode})
		}
	}
	return nil
}

// Tick runs one full pass through every stage and returns the tick number.
// The first system error aborts the tick; later stages do not run.
func (r *Runner) Tick(ctx context.Context) (uint64, error) {
	if !r.built {
		return r.tick, ErrNotBuilt
	}
	r.tick++
	for _, stage := range r.stages {
		if err := r.runStage(ctx, stage); err != nil {
			return r.tick, err
		}
	}
	return r.tick, nil
}

func (r *Runner) runStage(ctx context.Context, stage []System) error {
	var accesses []ecs.Access
	for _, s := range stage {
		accesses = append(accesses, s.Access()...)
	}
	release, err := r.registry.Acquire(accesses)
	if err != nil {
		return fmt.Errorf("phase %s: %w", stage[0].Phase(), err)
	}
	defer release()

	if len(stage) == 1 {
		return r.update(ctx, stage[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range stage {
		g.Go(func() error { return r.update(gctx, s) })
	}
	// Barrier: nothing from the next phase starts before every system here returns.
	return g.Wait()
}

func (r *Runner) update(ctx context.Context, s System) error {
	if err := s.Update(ctx, r.tick); err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	r.log.Debug("system updated",
		zap.String("system", s.Name()),
		zap.Stringer("phase", s.Phase()),
		zap.Uint64("tick", r.tick),
	)
	return nil
}

// Ticks returns the number of ticks started so far.
func (r *Runner) Ticks() uint64 { return r.tick }
