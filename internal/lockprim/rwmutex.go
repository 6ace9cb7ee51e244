package lockprim

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/calvinalkan/shmregion/primitive"
)

const (
	rwMutexUID      uint8  = 2
	rwMutexBodySize uint64 = 8
)

// rwMutexWriterBit marks the word as writer-held; the remaining 31 bits are
// the live reader count. A word of 0 means unlocked.
const rwMutexWriterBit uint32 = 1 << 31

type rwMutexKind struct{}

// RWMutex is the built-in shared/exclusive lock kind (wire uid 2): a
// process-shared reader/writer spinlock packed into a single 32-bit word of
// its 8 body bytes.
var RWMutex = rwMutexKind{}

func init() {
	primitive.RegisterLockKind(RWMutex)
}

func (rwMutexKind) UID() uint8 { return rwMutexUID }

func (rwMutexKind) BodySize() uint64 { return rwMutexBodySize }

func (rwMutexKind) Init(d *primitive.LockDescriptor, owner bool) error {
	if uint64(len(d.Body)) < rwMutexBodySize {
		return fmt.Errorf("lockprim: rwmutex body too small: got %d bytes, need %d", len(d.Body), rwMutexBodySize)
	}

	if owner {
		atomic.StoreUint32(mutexWord(d.Body), 0)
	}

	return nil
}

// RLock blocks until a shared hold is acquired.
func (rwMutexKind) RLock(body []byte) error {
	w := mutexWord(body)
	backoff := time.Microsecond

	for {
		cur := atomic.LoadUint32(w)
		if cur&rwMutexWriterBit == 0 && atomic.CompareAndSwapUint32(w, cur, cur+1) {
			return nil
		}

		time.Sleep(backoff)

		if backoff < time.Millisecond {
			backoff *= 2
		}
	}
}

// RUnlock releases a shared hold previously acquired with RLock.
func (rwMutexKind) RUnlock(body []byte) error {
	atomic.AddUint32(mutexWord(body), ^uint32(0))

	return nil
}

// Lock blocks until the exclusive hold is acquired; no readers or other
// writer may hold the lock while it is held.
func (rwMutexKind) Lock(body []byte) error {
	w := mutexWord(body)
	backoff := time.Microsecond

	for !atomic.CompareAndSwapUint32(w, 0, rwMutexWriterBit) {
		time.Sleep(backoff)

		if backoff < time.Millisecond {
			backoff *= 2
		}
	}

	return nil
}

// Unlock releases the exclusive hold acquired with Lock.
func (rwMutexKind) Unlock(body []byte) error {
	atomic.StoreUint32(mutexWord(body), 0)

	return nil
}
