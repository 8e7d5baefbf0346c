package ecs

import "fmt"

// World is the top-level ECS container. It owns the entity pool and the
// registry of component stores and resources.
type World struct {
	pool     *EntityPool
	registry *Registry
}

func NewWorld() *World {
	return &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// RegisterStore creates a typed store for kind and registers it with w.
func RegisterStore[T any](w *World, kind Kind, name string) (*Store[T], error) {
	s := NewStore[T](kind)
	if err := w.registry.Register(kind, name, s); err != nil {
		return nil, fmt.Errorf("register %s store: %w", name, err)
	}
	return s, nil
}

// StoreOf returns the typed store registered under kind.
func StoreOf[T any](w *World, kind Kind) (*Store[T], bool) {
	raw, ok := w.registry.Lookup(kind)
	if !ok {
		return nil, false
	}
	s, ok := raw.(*Store[T])
	return s, ok
}
