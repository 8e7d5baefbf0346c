package ecs

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Join returns, in ascending order, the entities present in every store.
// It walks the smallest store and probes the others. No stores → no entities.
func Join(stores ...Membership) []EntityID {
	if len(stores) == 0 {
		return nil
	}
	ordered := make([]Membership, len(stores))
	copy(ordered, stores)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Len() < ordered[j].Len()
	})

	candidates := ordered[0].IDs()
	for _, s := range ordered[1:] {
		filtered := candidates[:0]
		for _, id := range candidates {
			if s.Has(id) {
				filtered = append(filtered, id)
			}
		}
		candidates = filtered
		if len(candidates) == 0 {
			break
		}
	}
	return candidates
}

// Each2 iterates over entities that have both component A and B.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	for _, id := range Join(sa, sb) {
		fn(id, sa.data[id], sb.data[id])
	}
}

// Each3 iterates over entities that have components A, B, and C.
func Each3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(EntityID, *A, *B, *C)) {
	for _, id := range Join(sa, sb, sc) {
		fn(id, sa.data[id], sb.data[id], sc.data[id])
	}
}

// ParallelEach2 is Each2 split into contiguous chunks run on at most workers
// goroutines. fn must only touch the components of the entity it is given.
// Returns after every chunk has finished.
func ParallelEach2[A, B any](ctx context.Context, workers int, sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) error {
	ids := Join(sa, sb)
	if workers <= 1 || len(ids) < 2 {
		for _, id := range ids {
			fn(id, sa.data[id], sb.data[id])
		}
		return nil
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	// Resolve pointers up front: the maps are only read here, never inside workers.
	as := make([]*A, len(ids))
	bs := make([]*B, len(ids))
	for i, id := range ids {
		as[i], bs[i] = sa.data[id], sb.data[id]
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (len(ids) + workers - 1) / workers
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				fn(ids[i], as[i], bs[i])
			}
			return nil
		})
	}
	return g.Wait()
}
