// Package primitive defines the capability objects that shmregion's layout
// engine consumes but does not implement itself (spec.md §4.7, §6.4): the
// small vtable-like interface each lock/event kind exposes, and the
// descriptor records the core hands to that interface's methods.
//
// Concrete kinds (built-in or caller-supplied) register themselves with
// RegisterLockKind / RegisterEventKind, typically from an init function,
// the same self-registering-driver shape as database/sql.Register or
// image.RegisterFormat. See the lockprim package for the built-in catalog.
package primitive

import (
	"fmt"
	"sync"
)

// LockKind is the capability object one lock implementation exposes to the
// core (spec.md §4.7). BodySize and Init are the only operations the core
// calls; later operations (Lock, Unlock, TryLock, ...) are out of scope for
// the core and live on the concrete type returned to callers via
// LockDescriptor.Kind.
type LockKind interface {
	// UID is the small integer identifying this kind on the wire (spec.md §6.1).
	// Must be stable across releases: it is what a foreign process decodes
	// from a LockHeader to find this kind in the registry.
	UID() uint8

	// BodySize is the number of bytes this kind reserves in the mapping for
	// its own state, immediately following the (aligned) LockHeader.
	BodySize() uint64

	// Init constructs the lock's state in body when owner is true (the
	// creating process), or attaches to existing state when owner is false
	// (an opener). body has exactly BodySize() bytes.
	Init(d *LockDescriptor, owner bool) error
}

// EventKind is the event analogue of LockKind. Events have no offset/length
// (spec.md §4.3), only a body.
type EventKind interface {
	UID() uint8
	BodySize() uint64
	Init(d *EventDescriptor, owner bool) error
}

// LockDescriptor is the in-process record for one declared lock (spec.md
// §4.7): its kind, the byte range it protects, and the two mapping views a
// kind's Init needs.
type LockDescriptor struct {
	Kind   LockKind
	Offset uint64
	Length uint64

	// Body is the kind's reserved state bytes within the mapping
	// (body_addr in spec.md's terms, expressed as a slice view rather than
	// a raw pointer, see spec.md §9's re-architecture cue).
	Body []byte

	// Data is the protected user-region bytes (data_addr): Data ==
	// userRegion[Offset : Offset+Length].
	Data []byte
}

// EventDescriptor is the event analogue of LockDescriptor. Events have no
// offset/length/data view, only a body.
type EventDescriptor struct {
	Kind EventKind
	Body []byte
}

var (
	mu         sync.RWMutex
	lockKinds  = map[uint8]LockKind{}
	eventKinds = map[uint8]EventKind{}
)

// RegisterLockKind makes a lock kind findable by LockKindByUID, which the
// Opener's uid decoding step uses (spec.md §4.6 step 5: "decode kind from
// uid"). Config.AddLock does not consult the registry.
//
// Panics if uid is already registered, like image.RegisterFormat, this is a
// programming error meant to be caught at init time, not a runtime
// condition callers should handle.
func RegisterLockKind(k LockKind) {
	mu.Lock()
	defer mu.Unlock()

	uid := k.UID()
	if _, exists := lockKinds[uid]; exists {
		panic(fmt.Sprintf("shmregion/primitive: lock kind uid %d already registered", uid))
	}

	lockKinds[uid] = k
}

// RegisterEventKind is the event analogue of RegisterLockKind.
func RegisterEventKind(k EventKind) {
	mu.Lock()
	defer mu.Unlock()

	uid := k.UID()
	if _, exists := eventKinds[uid]; exists {
		panic(fmt.Sprintf("shmregion/primitive: event kind uid %d already registered", uid))
	}

	eventKinds[uid] = k
}

// LockKindByUID looks up a registered lock kind by its wire uid. The second
// return value is false for an unknown uid, callers (the Opener) must treat
// that as ErrInvalidHeader per spec.md §4.6.
func LockKindByUID(uid uint8) (LockKind, bool) {
	mu.RLock()
	defer mu.RUnlock()

	k, ok := lockKinds[uid]

	return k, ok
}

// EventKindByUID is the event analogue of LockKindByUID.
func EventKindByUID(uid uint8) (EventKind, bool) {
	mu.RLock()
	defer mu.RUnlock()

	k, ok := eventKinds[uid]

	return k, ok
}
