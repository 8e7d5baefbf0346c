package ecs

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBorrowConflict is returned by Acquire when a requested borrow overlaps
// one that is already held.
var ErrBorrowConflict = errors.New("borrow conflict")

// Mode is the access a system needs on a kind.
type Mode uint8

const (
	Read  Mode = iota // shared
	Write             // exclusive
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// Access is one entry of a system's declared capability list.
type Access struct {
	Kind Kind
	Mode Mode
}

func Reads(k Kind) Access  { return Access{Kind: k, Mode: Read} }
func Writes(k Kind) Access { return Access{Kind: k, Mode: Write} }

type entry struct {
	name  string
	store any

	readers int
	writer  bool
}

// Registry tracks every component store and singleton resource by Kind and
// arbitrates read-shared / write-exclusive borrows on them.
type Registry struct {
	mu      sync.Mutex
	entries map[Kind]*entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Kind]*entry, 16),
	}
}

// Register adds a store (or resource) under kind. Kinds are unique.
func (r *Registry) Register(kind Kind, name string, store any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[kind]; ok {
		return fmt.Errorf("kind %d already registered as %s", kind, e.name)
	}
	r.entries[kind] = &entry{name: name, store: store}
	return nil
}

// Name returns the registered name of kind, or a placeholder.
func (r *Registry) Name(kind Kind) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[kind]; ok {
		return e.name
	}
	return fmt.Sprintf("kind(%d)", kind)
}

// Lookup returns the store registered under kind.
func (r *Registry) Lookup(kind Kind) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[kind]
	if !ok {
		return nil, false
	}
	return e.store, true
}

// Acquire takes every borrow in accesses atomically. Either all are granted
// and the returned func releases them, or none are and the error names the
// first conflicting kind. Duplicate kinds in one request collapse to the
// strongest mode.
func (r *Registry) Acquire(accesses []Access) (release func(), err error) {
	want := make(map[Kind]Mode, len(accesses))
	for _, a := range accesses {
		if m, ok := want[a.Kind]; !ok || a.Mode > m {
			want[a.Kind] = a.Mode
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, m := range want {
		e, ok := r.entries[k]
		if !ok {
			return nil, fmt.Errorf("borrow %s of unregistered kind %d", m, k)
		}
		if e.writer || (m == Write && e.readers > 0) {
			return nil, fmt.Errorf("%w: %s %s", ErrBorrowConflict, m, e.name)
		}
	}
	for k, m := range want {
		e := r.entries[k]
		if m == Write {
			e.writer = true
		} else {
			e.readers++
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for k, m := range want {
				e := r.entries[k]
				if m == Write {
					e.writer = false
				} else {
					e.readers--
				}
			}
		})
	}, nil
}
