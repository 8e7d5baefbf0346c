package ecs

import "sort"

// Kind identifies a component store (or a singleton resource) in the
// Registry. Borrows and system access declarations are expressed per Kind.
type Kind uint8

// Membership is the type-erased view of a store used by joins.
type Membership interface {
	Kind() Kind
	Has(id EntityID) bool
	Len() int
	IDs() []EntityID
}

// Store is a generic typed map store for one component kind. Values are held
// by pointer so Get doubles as the mutable accessor; callers must hold a
// write borrow on the kind before mutating through the pointer.
type Store[T any] struct {
	kind Kind
	data map[EntityID]*T
}

func NewStore[T any](kind Kind) *Store[T] {
	return &Store[T]{
		kind: kind,
		data: make(map[EntityID]*T, 64),
	}
}

func (s *Store[T]) Kind() Kind { return s.kind }

// Set attaches (or replaces) the component for id.
func (s *Store[T]) Set(id EntityID, c T) {
	s.data[id] = &c
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// IDs returns the entities holding this component in ascending order.
func (s *Store[T]) IDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each visits every component in ascending entity order.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.IDs() {
		fn(id, s.data[id])
	}
}
