package component

import "github.com/l1jgo/tileworld/internal/core/ecs"

// Registry kinds. KindCommandBuffer is a singleton resource rather than a
// per-entity component; it shares the kind space so that borrows on it are
// arbitrated like any store.
const (
	KindTile ecs.Kind = iota + 1
	KindPosition
	KindVelocity
	KindSize
	KindPlayerTag
	KindViewTag
	KindImmovableTag
	KindNonPlayerTag
	KindCommandBuffer
)
