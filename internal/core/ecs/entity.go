package ecs

// EntityID is an opaque entity identifier. The zero value is never issued.
type EntityID uint64

// NilEntity is the zero value; no allocated entity has this ID.
const NilEntity EntityID = 0

func (id EntityID) IsZero() bool { return id == NilEntity }

// EntityPool hands out entity identifiers. Tile-world entities live for the
// whole simulation, so identifiers are never recycled.
type EntityPool struct {
	next EntityID
}

func NewEntityPool() *EntityPool {
	return &EntityPool{next: 1}
}

func (p *EntityPool) Create() EntityID {
	id := p.next
	p.next++
	return id
}

// Alive reports whether id was issued by this pool.
func (p *EntityPool) Alive(id EntityID) bool {
	return id != NilEntity && id < p.next
}

// Live returns the number of issued identifiers.
func (p *EntityPool) Live() int { return int(p.next - 1) }
