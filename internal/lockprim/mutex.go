// Package lockprim is the built-in catalog of LockKind/EventKind
// implementations (spec.md §4.7, §9's "Built-in vs pluggable primitives" open
// question, resolved here by shipping a small built-in set and leaving the
// primitive.RegisterLockKind/RegisterEventKind seam open to callers).
//
// Every kind here is process-shared: its state lives entirely in the body
// bytes the core carves out of the mapping (primitive.LockDescriptor.Body),
// never in process memory, so two processes attached to the same region
// observe the same lock/event state. That rules out flock/fcntl-style
// descriptor-based locking (spec.md's layout never threads a file descriptor
// through LockDescriptor) in favor of atomic operations directly on the
// mapped bytes, the same way a PTHREAD_PROCESS_SHARED mutex works.
package lockprim

import (
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/calvinalkan/shmregion/primitive"
)

const (
	mutexUID      uint8  = 1
	mutexBodySize uint64 = 8
)

const (
	mutexUnlocked uint32 = 0
	mutexLocked   uint32 = 1
)

// mutexKind implements primitive.LockKind plus the Lock/Unlock/TryLock
// surface callers use directly (primitive's doc comment: "live on the
// concrete type returned to callers via LockDescriptor.Kind"). It carries no
// per-instance state itself, every method takes the instance's body bytes
// as an argument, since the registered kind is a single shared value reused
// across every lock of that kind in a Config.
type mutexKind struct{}

// Mutex is the built-in exclusive lock kind (wire uid 1): a process-shared
// spinlock stored in 8 body bytes.
var Mutex = mutexKind{}

func init() {
	primitive.RegisterLockKind(Mutex)
}

func (mutexKind) UID() uint8 { return mutexUID }

func (mutexKind) BodySize() uint64 { return mutexBodySize }

func (mutexKind) Init(d *primitive.LockDescriptor, owner bool) error {
	if uint64(len(d.Body)) < mutexBodySize {
		return fmt.Errorf("lockprim: mutex body too small: got %d bytes, need %d", len(d.Body), mutexBodySize)
	}

	if owner {
		atomic.StoreUint32(mutexWord(d.Body), mutexUnlocked)
	}

	return nil
}

// Lock blocks until it acquires the mutex backed by body, spinning with
// exponential backoff. body must be the Body slice from the LockDescriptor
// this kind was Init'd with.
func (mutexKind) Lock(body []byte) error {
	w := mutexWord(body)
	backoff := time.Microsecond

	for !atomic.CompareAndSwapUint32(w, mutexUnlocked, mutexLocked) {
		time.Sleep(backoff)

		if backoff < time.Millisecond {
			backoff *= 2
		}
	}

	return nil
}

// TryLock attempts to acquire the mutex without blocking.
func (mutexKind) TryLock(body []byte) (bool, error) {
	return atomic.CompareAndSwapUint32(mutexWord(body), mutexUnlocked, mutexLocked), nil
}

// Unlock releases the mutex. Unlocking an already-unlocked mutex is a no-op,
// same as sync.Mutex misuse is undefined rather than checked.
func (mutexKind) Unlock(body []byte) error {
	atomic.StoreUint32(mutexWord(body), mutexUnlocked)

	return nil
}

// mutexWord reinterprets the first 4 bytes of body as the atomic word the
// lock operations act on. body is mapping memory with a lifetime tied to the
// attached Region (spec.md §9) and is 8-byte aligned by construction
// (layout.go aligns every body offset to AddrAlign), so this satisfies
// atomic's alignment requirement.
func mutexWord(body []byte) *uint32 {
	return (*uint32)(unsafe.Pointer(&body[0]))
}
