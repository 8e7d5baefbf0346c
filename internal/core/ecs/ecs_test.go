package ecs

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kindA Kind = iota + 1
	kindB
	kindC
)

type pos struct{ X, Y int }
type vel struct{ DX, DY int }
type tag struct{}

func TestEntityPoolNeverIssuesZero(t *testing.T) {
	p := NewEntityPool()
	assert.False(t, p.Alive(NilEntity))

	first := p.Create()
	second := p.Create()
	assert.False(t, first.IsZero())
	assert.NotEqual(t, first, second)
	assert.True(t, p.Alive(first))
	assert.True(t, p.Alive(second))
	assert.False(t, p.Alive(second+1))
	assert.Equal(t, 2, p.Live())
}

func TestStoreSetGetRemove(t *testing.T) {
	s := NewStore[pos](kindA)
	s.Set(3, pos{1, 2})
	s.Set(1, pos{5, 6})

	got, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, pos{1, 2}, *got)

	// Get returns the stored pointer, so mutation sticks.
	got.X = 9
	again, _ := s.Get(3)
	assert.Equal(t, 9, again.X)

	assert.Equal(t, []EntityID{1, 3}, s.IDs())
	assert.Equal(t, 2, s.Len())

	s.Remove(3)
	assert.False(t, s.Has(3))
	_, ok = s.Get(3)
	assert.False(t, ok)
}

func TestStoreEachIsOrdered(t *testing.T) {
	s := NewStore[int](kindA)
	for _, id := range []EntityID{7, 2, 5, 1} {
		s.Set(id, int(id)*10)
	}
	var seen []EntityID
	s.Each(func(id EntityID, v *int) {
		assert.Equal(t, int(id)*10, *v)
		seen = append(seen, id)
	})
	assert.Equal(t, []EntityID{1, 2, 5, 7}, seen)
}

func TestJoin(t *testing.T) {
	a := NewStore[pos](kindA)
	b := NewStore[vel](kindB)
	c := NewStore[tag](kindC)
	for id := EntityID(1); id <= 10; id++ {
		a.Set(id, pos{})
		if id%2 == 0 {
			b.Set(id, vel{})
		}
		if id%3 == 0 {
			c.Set(id, tag{})
		}
	}

	tests := []struct {
		name   string
		stores []Membership
		want   []EntityID
	}{
		{"none", nil, nil},
		{"single", []Membership{c}, []EntityID{3, 6, 9}},
		{"pair", []Membership{a, b}, []EntityID{2, 4, 6, 8, 10}},
		{"order does not matter", []Membership{b, a}, []EntityID{2, 4, 6, 8, 10}},
		{"triple", []Membership{a, b, c}, []EntityID{6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.stores...))
		})
	}
}

func TestJoinEmptyIntersection(t *testing.T) {
	a := NewStore[pos](kindA)
	b := NewStore[vel](kindB)
	a.Set(1, pos{})
	b.Set(2, vel{})
	assert.Empty(t, Join(a, b))
}

func TestEach2And3(t *testing.T) {
	a := NewStore[pos](kindA)
	b := NewStore[vel](kindB)
	c := NewStore[tag](kindC)
	a.Set(1, pos{0, 0})
	a.Set(2, pos{10, 10})
	b.Set(2, vel{1, -1})
	b.Set(3, vel{5, 5})
	c.Set(2, tag{})

	Each2(a, b, func(_ EntityID, p *pos, v *vel) {
		p.X += v.DX
		p.Y += v.DY
	})
	p, _ := a.Get(2)
	assert.Equal(t, pos{11, 9}, *p)
	p, _ = a.Get(1)
	assert.Equal(t, pos{0, 0}, *p)

	var hits []EntityID
	Each3(a, b, c, func(id EntityID, _ *pos, _ *vel, _ *tag) {
		hits = append(hits, id)
	})
	assert.Equal(t, []EntityID{2}, hits)
}

func TestParallelEach2MatchesSequential(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 100} {
		a := NewStore[pos](kindA)
		b := NewStore[vel](kindB)
		for id := EntityID(1); id <= 50; id++ {
			a.Set(id, pos{int(id), 0})
			b.Set(id, vel{1, 2})
		}
		var calls atomic.Int64
		err := ParallelEach2(context.Background(), workers, a, b, func(_ EntityID, p *pos, v *vel) {
			calls.Add(1)
			p.X += v.DX
			p.Y += v.DY
		})
		require.NoError(t, err)
		assert.EqualValues(t, 50, calls.Load(), "workers=%d", workers)
		a.Each(func(id EntityID, p *pos) {
			assert.Equal(t, pos{int(id) + 1, 2}, *p, "workers=%d id=%d", workers, id)
		})
	}
}

func TestParallelEach2Cancelled(t *testing.T) {
	a := NewStore[pos](kindA)
	b := NewStore[vel](kindB)
	for id := EntityID(1); id <= 10; id++ {
		a.Set(id, pos{})
		b.Set(id, vel{})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ParallelEach2(ctx, 4, a, b, func(EntityID, *pos, *vel) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(kindA, "A", NewStore[pos](kindA)))
	assert.Error(t, r.Register(kindA, "again", NewStore[pos](kindA)))
	assert.Equal(t, "A", r.Name(kindA))
	assert.Equal(t, "kind(2)", r.Name(kindB))

	_, ok := r.Lookup(kindB)
	assert.False(t, ok)
}

func TestRegistryBorrows(t *testing.T) {
	newReg := func(t *testing.T) *Registry {
		r := NewRegistry()
		require.NoError(t, r.Register(kindA, "A", nil))
		require.NoError(t, r.Register(kindB, "B", nil))
		return r
	}

	t.Run("shared reads", func(t *testing.T) {
		r := newReg(t)
		rel1, err := r.Acquire([]Access{Reads(kindA)})
		require.NoError(t, err)
		rel2, err := r.Acquire([]Access{Reads(kindA)})
		require.NoError(t, err)
		rel1()
		rel2()
	})

	t.Run("write excludes read", func(t *testing.T) {
		r := newReg(t)
		rel, err := r.Acquire([]Access{Writes(kindA)})
		require.NoError(t, err)
		_, err = r.Acquire([]Access{Reads(kindA)})
		assert.ErrorIs(t, err, ErrBorrowConflict)
		rel()
		rel2, err := r.Acquire([]Access{Reads(kindA)})
		require.NoError(t, err)
		rel2()
	})

	t.Run("read excludes write", func(t *testing.T) {
		r := newReg(t)
		rel, err := r.Acquire([]Access{Reads(kindA)})
		require.NoError(t, err)
		defer rel()
		_, err = r.Acquire([]Access{Writes(kindA)})
		assert.ErrorIs(t, err, ErrBorrowConflict)
	})

	t.Run("all or nothing", func(t *testing.T) {
		r := newReg(t)
		rel, err := r.Acquire([]Access{Writes(kindB)})
		require.NoError(t, err)
		_, err = r.Acquire([]Access{Writes(kindA), Reads(kindB)})
		require.ErrorIs(t, err, ErrBorrowConflict)
		// kindA must not have been left borrowed by the failed request.
		relA, err := r.Acquire([]Access{Writes(kindA)})
		require.NoError(t, err)
		relA()
		rel()
	})

	t.Run("duplicate kinds collapse to strongest", func(t *testing.T) {
		r := newReg(t)
		rel, err := r.Acquire([]Access{Reads(kindA), Writes(kindA)})
		require.NoError(t, err)
		_, err = r.Acquire([]Access{Reads(kindA)})
		assert.ErrorIs(t, err, ErrBorrowConflict)
		rel()
	})

	t.Run("release is idempotent", func(t *testing.T) {
		r := newReg(t)
		rel, err := r.Acquire([]Access{Reads(kindA)})
		require.NoError(t, err)
		rel()
		rel()
		relW, err := r.Acquire([]Access{Writes(kindA)})
		require.NoError(t, err)
		relW()
	})

	t.Run("unregistered kind", func(t *testing.T) {
		r := newReg(t)
		_, err := r.Acquire([]Access{Reads(kindC)})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrBorrowConflict)
	})
}

func TestWorldStores(t *testing.T) {
	w := NewWorld()
	ps, err := RegisterStore[pos](w, kindA, "Position")
	require.NoError(t, err)
	_, err = RegisterStore[vel](w, kindA, "Velocity")
	assert.Error(t, err)

	got, ok := StoreOf[pos](w, kindA)
	require.True(t, ok)
	assert.Same(t, ps, got)

	_, ok = StoreOf[vel](w, kindA)
	assert.False(t, ok, "wrong type for kind")

	id := w.CreateEntity()
	assert.True(t, w.Alive(id))
}
